package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// DocumentSyncMessage announces that an account's document changed. The
// worker reloads the document itself, so the message carries only the key.
type DocumentSyncMessage struct {
	Account   string    `json:"account"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDocumentSyncMessage(account string) *DocumentSyncMessage {
	return &DocumentSyncMessage{
		Account:   account,
		Timestamp: time.Now().UTC(),
	}
}

func (m *DocumentSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DocumentSyncMessageFromJSON(data []byte) (*DocumentSyncMessage, error) {
	var msg DocumentSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.Account) == "" {
		return nil, errors.New("sync message without account")
	}
	return &msg, nil
}
