package testutil

import (
	"context"
	"os"
	"path/filepath"

	"github.com/doorward/doorward/delegate"
	"github.com/doorward/doorward/userstore"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

func AcquireUserStore(ctx context.Context, t TestLog, name string) (*userstore.Store, func()) {
	dir, err := os.MkdirTemp("", "doorward-tests")
	if err != nil {
		t.Fatal(err)
	}
	store, err := userstore.Open(ctx, filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			t.Log("unable to close user store", err)
		}
		if err := os.RemoveAll(dir); err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}

func AcquireProfileStore(ctx context.Context, t TestLog, name string) (*delegate.ProfileStore, func()) {
	dir, err := os.MkdirTemp("", "doorward-tests")
	if err != nil {
		t.Fatal(err)
	}
	store, err := delegate.OpenProfileStore(ctx, filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			t.Log("unable to close profile store", err)
		}
		if err := os.RemoveAll(dir); err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}
