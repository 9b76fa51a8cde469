package legacy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
)

// Config document keys holding the legacy blocklists.
const (
	BlockedUsersKey = "blocked"
	BlockedRolesKey = "blocked_roles"
)

// Snapshot holds both legacy blocklists keyed by Discord ID.
type Snapshot struct {
	Users map[string]Value
	Roles map[string]Value
}

// Len returns the number of stored blocks.
func (s *Snapshot) Len() int {
	return len(s.Users) + len(s.Roles)
}

// Source provides the legacy blocklists and can empty them once migrated.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
	Clear(ctx context.Context) error
}

// FileSource reads the legacy blocklists from a JSON config document.
// Other keys of the document are preserved when it is rewritten.
type FileSource struct {
	path string
}

// NewFileSource creates a source backed by the JSON document at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load decodes both blocklists. Missing keys yield empty lists.
func (f *FileSource) Load(_ context.Context) (*Snapshot, error) {
	document, err := f.readDocument()
	if err != nil {
		return nil, err
	}

	users, err := decodeList(document, BlockedUsersKey)
	if err != nil {
		return nil, err
	}

	roles, err := decodeList(document, BlockedRolesKey)
	if err != nil {
		return nil, err
	}

	return &Snapshot{Users: users, Roles: roles}, nil
}

// Clear rewrites the document with both blocklists empty.
func (f *FileSource) Clear(_ context.Context) error {
	document, err := f.readDocument()
	if err != nil {
		return err
	}

	document[BlockedUsersKey] = json.RawMessage("{}")
	document[BlockedRolesKey] = json.RawMessage("{}")

	data, err := sonic.ConfigStd.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode legacy config: %w", err)
	}

	temp, err := os.CreateTemp(filepath.Dir(f.path), ".legacy-config-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(temp.Name())

		return fmt.Errorf("failed to write legacy config: %w", err)
	}

	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return fmt.Errorf("failed to write legacy config: %w", err)
	}

	if err := os.Rename(temp.Name(), f.path); err != nil {
		os.Remove(temp.Name())
		return fmt.Errorf("failed to replace legacy config: %w", err)
	}

	return nil
}

func (f *FileSource) readDocument() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy config: %w", err)
	}

	var document map[string]json.RawMessage
	if err := sonic.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to decode legacy config: %w", err)
	}

	if document == nil {
		document = make(map[string]json.RawMessage)
	}

	return document, nil
}

func decodeList(document map[string]json.RawMessage, key string) (map[string]Value, error) {
	raw, ok := document[key]
	if !ok || string(raw) == "null" {
		return map[string]Value{}, nil
	}

	var entries map[string]json.RawMessage
	if err := sonic.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s is not an object: %w", ErrMalformedLegacyEntry, key, err)
	}

	list := make(map[string]Value, len(entries))
	for id, entry := range entries {
		var value Value
		if err := value.UnmarshalJSON(entry); err != nil {
			return nil, fmt.Errorf("%s[%s]: %w", key, id, err)
		}

		list[id] = value
	}

	return list, nil
}
