package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalSaveAndDelete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st, err := NewLocalStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	url, err := st.Save(ctx, strings.NewReader("fake-png-bytes"), ".png")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(url, URLPrefix) {
		t.Fatalf("url = %q, want %q prefix", url, URLPrefix)
	}
	if !strings.HasSuffix(url, ".png") {
		t.Fatalf("url = %q, want .png suffix", url)
	}

	name := strings.TrimPrefix(url, URLPrefix)
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(data) != "fake-png-bytes" {
		t.Fatalf("blob content = %q", data)
	}

	if err := st.Delete(ctx, url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
		t.Fatal("blob still present after delete")
	}

	// Deleting again is a no-op.
	if err := st.Delete(ctx, url); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestLocalSaveUniqueNames(t *testing.T) {
	t.Parallel()

	st, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	a, err := st.Save(ctx, strings.NewReader("one"), ".jpg")
	if err != nil {
		t.Fatal(err)
	}
	b, err := st.Save(ctx, strings.NewReader("two"), ".jpg")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("two saves produced the same url %q", a)
	}
}

func TestDeleteRejectsTraversal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st, err := NewLocalStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	outside := filepath.Join(dir, "..", "victim")
	if err := os.WriteFile(outside, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := st.Delete(context.Background(), URLPrefix+"../victim"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatal("file outside the storage dir was deleted")
	}
}

func TestKeyFromURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url string
		ok  bool
	}{
		{URLPrefix + "abc.png", true},
		{URLPrefix, false},
		{URLPrefix + "../etc/passwd", false},
		{URLPrefix + "a/b.png", false},
		{"/other/abc.png", false},
		{"abc.png", false},
	}
	for _, tc := range cases {
		if _, ok := keyFromURL(tc.url); ok != tc.ok {
			t.Errorf("keyFromURL(%q) ok = %v, want %v", tc.url, ok, tc.ok)
		}
	}
}
