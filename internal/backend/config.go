package backend

import (
	"errors"
	"fmt"

	"finanzas/internal/config"
)

// Role picks which configured backend FromAppConfig describes.
type Role int

const (
	RolePrimary Role = iota
	RoleMirror
)

// ErrNoMirror is returned for RoleMirror when no mirror backend is set.
var ErrNoMirror = errors.New("no mirror backend configured")

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config, role Role) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	name := appConfig.DataBackend
	if role == RoleMirror {
		if appConfig.MirrorBackend == "" {
			return Config{}, ErrNoMirror
		}
		name = appConfig.MirrorBackend
	}
	backendType := BackendType(name)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", name)
	}

	cfg := Config{
		Type:                backendType,
		DataDirectory:       appConfig.DataDirectory,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		DatabaseURL:         appConfig.DatabaseURL,
		MongoURI:            appConfig.MongoURI,
		MongoDatabase:       appConfig.MongoDatabase,
		FirestoreProject:    appConfig.FirestoreProject,
		FirestoreCollection: appConfig.FirestoreCollection,
		FirestoreEndpoint:   appConfig.FirestoreEndpoint,
	}
	if backendType == FirestoreBackend {
		creds, err := appConfig.GoogleCredentials()
		if err != nil {
			return Config{}, err
		}
		cfg.GoogleCredentials = creds
	}
	return cfg, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case MongoBackend:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("MongoDB URI and database are required for mongo backend")
		}
	case FirestoreBackend:
		if c.FirestoreProject == "" {
			return fmt.Errorf("Firestore project is required for firestore backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data".
	}
	return nil
}

func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend, MongoBackend, FirestoreBackend}
}

func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
