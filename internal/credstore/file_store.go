package credstore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"bookworm/pkg/domain"
)

// FileStore keeps the credential blob in a single file, sealed at rest.
// Writes go through a temp file and rename so a crash never leaves a
// half-written blob.
type FileStore struct {
	path string
	key  []byte
}

// NewFileStore derives the sealing key from the passphrase via HKDF-SHA256.
func NewFileStore(path, passphrase string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("credential store path is required")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("credential store passphrase is required")
	}
	h := hkdf.New(sha256.New, []byte(passphrase), nil, []byte("credential-blob"))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return &FileStore{path: path, key: key}, nil
}

func (f *FileStore) Read(_ context.Context) (domain.Credentials, bool, error) {
	sealed, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return domain.Credentials{}, false, nil
	}
	if err != nil {
		return domain.Credentials{}, false, fmt.Errorf("read credentials: %w", err)
	}
	plain, err := f.open(sealed)
	if err != nil {
		return domain.Credentials{}, false, fmt.Errorf("unseal credentials: %w", err)
	}
	var creds domain.Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return domain.Credentials{}, false, fmt.Errorf("decode credentials: %w", err)
	}
	return creds, true, nil
}

func (f *FileStore) Write(_ context.Context, creds domain.Credentials) error {
	plain, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	sealed, err := f.seal(plain)
	if err != nil {
		return fmt.Errorf("seal credentials: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp credentials: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close credentials: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (f *FileStore) seal(plain []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(f.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

func (f *FileStore) open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(f.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed blob too short")
	}
	nonce, box := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, box, nil)
}
