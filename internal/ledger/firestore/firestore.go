// Package firestore mirrors ledger documents into a Cloud Firestore
// collection through the REST API. Each account is one document whose
// payload field holds the JSON-encoded AppData.
package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	fsapi "google.golang.org/api/firestore/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	htransport "google.golang.org/api/transport/http"

	"finanzas/internal/core"
)

const (
	payloadField   = "payload"
	updatedAtField = "updatedAt"

	defaultCollection = "ledger_documents"
)

var ErrInvalidAccount = errors.New("account key is not a valid document id")

type Config struct {
	ProjectID  string
	Database   string
	Collection string

	// CredentialsJSON is a service account key; empty means application
	// default credentials.
	CredentialsJSON []byte

	// Endpoint overrides the API base URL and disables authentication.
	// Used against the emulator and in tests.
	Endpoint string
	RetryMax int
	Logger   *slog.Logger
}

type Store struct {
	docs       *fsapi.ProjectsDatabasesDocumentsService
	root       string
	collection string
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("missing Firestore project id")
	}
	if cfg.Database == "" {
		cfg.Database = "(default)"
	}
	if cfg.Collection == "" {
		cfg.Collection = defaultCollection
	}
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 3
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = cfg.RetryMax
	retry.RetryWaitMin = 200 * time.Millisecond
	retry.RetryWaitMax = 3 * time.Second
	retry.Logger = nil
	if cfg.Logger != nil {
		retry.Logger = cfg.Logger
	}
	// Reads are retried; a failed write is reported once and left to the
	// caller, which keeps its in-memory state.
	transport := readRetryTransport{
		reads:  retry.StandardClient().Transport,
		writes: retry.HTTPClient.Transport,
	}

	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts,
			option.WithEndpoint(strings.TrimSuffix(cfg.Endpoint, "/")+"/"),
			option.WithHTTPClient(&http.Client{Transport: transport}))
	} else {
		authOpts := []option.ClientOption{option.WithScopes(fsapi.DatastoreScope)}
		if len(cfg.CredentialsJSON) > 0 {
			authOpts = append(authOpts, option.WithCredentialsJSON(cfg.CredentialsJSON))
		}
		authed, err := htransport.NewTransport(ctx, transport, authOpts...)
		if err != nil {
			return nil, fmt.Errorf("firestore credentials: %w", err)
		}
		opts = append(opts, option.WithHTTPClient(&http.Client{Transport: authed}))
	}

	svc, err := fsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore service: %w", err)
	}
	return &Store{
		docs:       svc.Projects.Databases.Documents,
		root:       fmt.Sprintf("projects/%s/databases/%s/documents", cfg.ProjectID, cfg.Database),
		collection: cfg.Collection,
	}, nil
}

type readRetryTransport struct {
	reads  http.RoundTripper
	writes http.RoundTripper
}

func (t readRetryTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return t.reads.RoundTrip(r)
	}
	return t.writes.RoundTrip(r)
}

func (s *Store) name(account string) (string, error) {
	if account == "" || strings.Contains(account, "/") || account == "." || account == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccount, account)
	}
	return path.Join(s.root, s.collection, account), nil
}

func (s *Store) Load(ctx context.Context, account string) (core.AppData, bool, error) {
	name, err := s.name(account)
	if err != nil {
		return core.AppData{}, false, err
	}
	doc, err := s.docs.Get(name).Context(ctx).Do()
	if isNotFound(err) {
		return core.AppData{}, false, nil
	}
	if err != nil {
		return core.AppData{}, false, fmt.Errorf("get firestore document %s: %w", account, err)
	}
	data, err := decodeDocument(doc)
	if err != nil {
		return core.AppData{}, false, fmt.Errorf("decode firestore document %s: %w", account, err)
	}
	return data, true, nil
}

// Save replaces the whole document, creating it when missing.
func (s *Store) Save(ctx context.Context, account string, data core.AppData) error {
	name, err := s.name(account)
	if err != nil {
		return err
	}
	doc, err := encodeDocument(data, time.Now().UTC())
	if err != nil {
		return err
	}
	if _, err := s.docs.Patch(name, doc).Context(ctx).Do(); err != nil {
		return fmt.Errorf("patch firestore document %s: %w", account, err)
	}
	return nil
}

func (s *Store) Accounts(ctx context.Context) ([]string, error) {
	var out []string
	call := s.docs.List(s.root, s.collection).MaskFieldPaths(updatedAtField).PageSize(300)
	err := call.Pages(ctx, func(resp *fsapi.ListDocumentsResponse) error {
		for _, d := range resp.Documents {
			out = append(out, path.Base(d.Name))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list firestore documents: %w", err)
	}
	return out, nil
}

func encodeDocument(data core.AppData, at time.Time) (*fsapi.Document, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return &fsapi.Document{
		Fields: map[string]fsapi.Value{
			payloadField:   {StringValue: string(body)},
			updatedAtField: {TimestampValue: at.Format(time.RFC3339Nano)},
		},
	}, nil
}

func decodeDocument(doc *fsapi.Document) (core.AppData, error) {
	v, ok := doc.Fields[payloadField]
	if !ok || v.StringValue == "" {
		return core.AppData{}, errors.New("document has no payload")
	}
	var data core.AppData
	if err := json.Unmarshal([]byte(v.StringValue), &data); err != nil {
		return core.AppData{}, err
	}
	return data, nil
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}
