package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/securecookie"
)

const cookieName = "hostelctl_session"

// FileStore saves the session to a file, signed and optionally encrypted
// with securecookie.
type FileStore struct {
	path  string
	codec *securecookie.SecureCookie
}

// NewFileStore builds a store at path. hashKey is required; blockKey, when
// set, must be 16, 24 or 32 bytes and enables AES encryption.
func NewFileStore(path string, hashKey, blockKey []byte) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("session file path required")
	}
	if len(hashKey) == 0 {
		return nil, errors.New("session hash key required")
	}
	if n := len(blockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("session block key must be 16, 24 or 32 bytes, got %d", n)
	}
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(0)
	return &FileStore{path: path, codec: codec}, nil
}

// Load reads the session. A missing file yields (nil, nil).
func (f *FileStore) Load() (*Session, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var s Session
	if err := f.codec.Decode(cookieName, strings.TrimSpace(string(raw)), &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Save writes the encoded session with owner only permissions.
func (f *FileStore) Save(s Session) error {
	encoded, err := f.codec.Encode(cookieName, s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("prepare session directory: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Clear removes the session file.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
