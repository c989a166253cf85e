package credstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bookworm/pkg/domain"
)

func testCreds() domain.Credentials {
	return domain.Credentials{
		Token: "token-123",
		User:  domain.User{ID: "user-1", Username: "reader", Email: "a@b.com"},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.blob")
	store, err := NewFileStore(path, "passphrase")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	if _, ok, err := store.Read(ctx); err != nil || ok {
		t.Fatalf("read before write = ok=%v err=%v, want absent", ok, err)
	}
	if err := store.Write(ctx, testCreds()); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, ok, err := store.Read(ctx)
	if err != nil || !ok {
		t.Fatalf("read = ok=%v err=%v, want present", ok, err)
	}
	if got.Token != "token-123" || got.User.Username != "reader" {
		t.Fatalf("read back %+v, want written credentials", got)
	}
}

func TestFileStoreSealedAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.blob")
	store, err := NewFileStore(path, "passphrase")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := store.Write(context.Background(), testCreds()); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if strings.Contains(string(raw), "token-123") {
		t.Fatalf("token must not appear in plaintext on disk")
	}
}

func TestFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.blob")
	store, err := NewFileStore(path, "passphrase")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := store.Write(context.Background(), testCreds()); err != nil {
		t.Fatalf("write: %v", err)
	}

	other, err := NewFileStore(path, "different")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if _, _, err := other.Read(context.Background()); err == nil {
		t.Fatalf("expected unseal failure with the wrong passphrase")
	}
}

func TestFileStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.blob")
	store, err := NewFileStore(path, "passphrase")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	// Clear with nothing stored is fine.
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear empty: %v", err)
	}
	if err := store.Write(ctx, testCreds()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, err := store.Read(ctx); err != nil || ok {
		t.Fatalf("read after clear = ok=%v err=%v, want absent", ok, err)
	}
}
