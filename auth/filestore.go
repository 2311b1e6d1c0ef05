package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON file per tenant under a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create credential dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(tenant string) string {
	// tenant ids come from the application, but keep path traversal out anyway
	name := strings.ReplaceAll(tenant, string(os.PathSeparator), "_")
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) Load(_ context.Context, tenant string) (*Credential, error) {
	data, err := os.ReadFile(s.path(tenant))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("decode credential file: %w", err)
	}
	return &cred, nil
}

func (s *FileStore) Save(_ context.Context, tenant string, cred *Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	// write-then-rename so a concurrent Load never sees a partial record
	tmp := s.path(tenant) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path(tenant)); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, tenant string) error {
	err := os.Remove(s.path(tenant))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete credential file: %w", err)
	}
	return nil
}
