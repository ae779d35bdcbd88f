package storage

import (
	"os"
	"path/filepath"
	"testing"

	"helpcenterbot/core/helpcenter"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	fs := NewFileStore(path)

	st := helpcenter.DefaultState()
	st.VipLink = "https://t.me/vip"
	st.Users[42] = &helpcenter.UserRecord{ID: 42, DisplayName: "Alice"}
	st.Counters.PaymentSubmitted = 3
	if err := fs.Save(st); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := NewFileStore(path).Load()
	if got.VipLink != "https://t.me/vip" {
		t.Fatalf("VipLink = %q", got.VipLink)
	}
	if u, ok := got.Users[42]; !ok || u.DisplayName != "Alice" {
		t.Fatalf("user not restored: %+v", got.Users)
	}
	if got.Counters.PaymentSubmitted != 3 {
		t.Fatalf("counters not restored: %+v", got.Counters)
	}
}

func TestFileStoreMissingFileYieldsDefaults(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "missing", "state.json"))
	st := fs.Load()
	if st == nil || st.Users == nil || st.Pending == nil {
		t.Fatalf("expected usable defaults, got %+v", st)
	}
	if len(st.Users) != 0 || len(st.Pending) != 0 {
		t.Fatalf("defaults not empty: %+v", st)
	}
}

func TestFileStoreCorruptedFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	st := NewFileStore(path).Load()
	if st == nil || len(st.Users) != 0 {
		t.Fatalf("expected defaults after corruption, got %+v", st)
	}
}

func TestFileStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	fs := NewFileStore(path)
	if err := fs.Save(helpcenter.DefaultState()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("state file missing: %v", err)
	}
}

func TestFileStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	fs := NewFileStore(path)
	for i := 0; i < 3; i++ {
		if err := fs.Save(helpcenter.DefaultState()); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("unexpected directory contents: %v", names)
	}
}
