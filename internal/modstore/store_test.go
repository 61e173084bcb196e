package modstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenAndMigrate(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	dbPath := filepath.Join(dir, "synthcore.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("querying journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want wal", journalMode)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='module_keys'").Scan(&count); err != nil {
		t.Fatalf("checking module_keys table: %v", err)
	}
	if count != 1 {
		t.Error("module_keys table not found")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open() error: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open() error: %v", err)
	}
	s2.Close()
}

func TestSetDataAndGetData(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	h := s.NewHandle()
	if err := h.SetData("album/p_manifest.json", []byte(`{"connections":[]}`)); err != nil {
		t.Fatalf("SetData() error: %v", err)
	}

	data, err := h.GetData("album/p_manifest.json")
	if err != nil {
		t.Fatalf("GetData() error: %v", err)
	}
	if string(data) != `{"connections":[]}` {
		t.Errorf("GetData() = %q, want the stored JSON", data)
	}
}

func TestSetDataRejectsMalformedJSON(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	h := s.NewHandle()
	err = h.SetData("album/p_manifest.json", []byte(`{not json`))
	if !errors.Is(err, errMalformedJSON) {
		t.Fatalf("SetData() error = %v, want errMalformedJSON", err)
	}
}

func TestSetDataRejectsUnknownSuffix(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	h := s.NewHandle()
	err = h.SetData("au_00/p_manifest.txt", []byte("whatever"))
	if !errors.Is(err, ErrUnknownKeySuffix) {
		t.Fatalf("SetData() error = %v, want ErrUnknownKeySuffix", err)
	}
}

func TestSetDataOverwritesAndUpdatesChecksum(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	h := s.NewHandle()
	if err := h.SetData("album/p_manifest.json", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("SetData() error: %v", err)
	}
	sum1, err := h.Checksum("album/p_manifest.json")
	if err != nil {
		t.Fatalf("Checksum() error: %v", err)
	}

	if err := h.SetData("album/p_manifest.json", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("SetData() update error: %v", err)
	}
	sum2, err := h.Checksum("album/p_manifest.json")
	if err != nil {
		t.Fatalf("Checksum() error: %v", err)
	}

	if sum1 == sum2 {
		t.Error("checksum did not change after overwriting data")
	}

	data, err := h.GetData("album/p_manifest.json")
	if err != nil {
		t.Fatalf("GetData() error: %v", err)
	}
	if string(data) != `{"a":2}` {
		t.Errorf("GetData() = %q, want updated value", data)
	}
}

func TestGetDataNotFound(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	h := s.NewHandle()
	_, err = h.GetData("au_00/p_manifest.json")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetData() error = %v, want ErrNotFound", err)
	}
}

func TestKeysSortedAndScopedToHandle(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	h1 := s.NewHandle()
	h2 := s.NewHandle()

	if err := h1.SetData("au_01/p_manifest.json", []byte(`{}`)); err != nil {
		t.Fatalf("SetData() error: %v", err)
	}
	if err := h1.SetData("album/p_manifest.json", []byte(`{}`)); err != nil {
		t.Fatalf("SetData() error: %v", err)
	}
	if err := h2.SetData("album/p_manifest.json", []byte(`{}`)); err != nil {
		t.Fatalf("SetData() error: %v", err)
	}

	keys, err := h1.Keys()
	if err != nil {
		t.Fatalf("Keys() error: %v", err)
	}
	want := []string{"album/p_manifest.json", "au_01/p_manifest.json"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestValidateReportsMissingKeysInGivenOrder(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	h := s.NewHandle()
	if err := h.SetData("album/p_manifest.json", []byte(`{}`)); err != nil {
		t.Fatalf("SetData() error: %v", err)
	}

	required := []string{"album/p_manifest.json", "au_00/p_manifest.json", "au_00/proc_00/p_manifest.json"}
	err = h.Validate(required)

	var formatErr *FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Validate() error = %v, want *FormatError", err)
	}
	want := []string{"au_00/p_manifest.json", "au_00/proc_00/p_manifest.json"}
	if len(formatErr.MissingKeys) != len(want) {
		t.Fatalf("MissingKeys = %v, want %v", formatErr.MissingKeys, want)
	}
	for i := range want {
		if formatErr.MissingKeys[i] != want[i] {
			t.Errorf("MissingKeys[%d] = %q, want %q", i, formatErr.MissingKeys[i], want[i])
		}
	}
}

func TestValidatePassesWhenAllKeysPresent(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	h := s.NewHandle()
	if err := h.SetData("album/p_manifest.json", []byte(`{}`)); err != nil {
		t.Fatalf("SetData() error: %v", err)
	}

	if err := h.Validate([]string{"album/p_manifest.json"}); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestDeleteRemovesAllKeys(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	h := s.NewHandle()
	if err := h.SetData("album/p_manifest.json", []byte(`{}`)); err != nil {
		t.Fatalf("SetData() error: %v", err)
	}
	if err := h.Delete(); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	ok, err := h.Has("album/p_manifest.json")
	if err != nil {
		t.Fatalf("Has() error: %v", err)
	}
	if ok {
		t.Error("key still present after Delete()")
	}
}

func TestOpenHandleReattaches(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	h := s.NewHandle()
	if err := h.SetData("album/p_manifest.json", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("SetData() error: %v", err)
	}

	reattached := s.OpenHandle(h.ID())
	data, err := reattached.GetData("album/p_manifest.json")
	if err != nil {
		t.Fatalf("GetData() error: %v", err)
	}
	if string(data) != `{"v":1}` {
		t.Errorf("GetData() = %q, want original value", data)
	}
}
