package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pixil98/go-testutil"
)

type mockStoreSpec struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func (s *mockStoreSpec) Validate() error {
	return nil
}

func writeAsset(t *testing.T, dir, file string, asset any) {
	t.Helper()
	data, err := json.Marshal(asset)
	if err != nil {
		t.Fatalf("failed to marshal test asset: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), data, 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
}

func TestNewFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "saves")

	store, err := NewFileStore[*mockStoreSpec](dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "path", store.path, dir)
	testutil.AssertEqual(t, "records length", len(store.records), 0)

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	testutil.AssertEqual(t, "is dir", info.IsDir(), true)
}

func TestNewFileStore_Loading(t *testing.T) {
	tests := map[string]struct {
		files    map[string]any
		expCount int
		expErr   string
	}{
		"valid assets": {
			files: map[string]any{
				"one.json": Asset[*mockStoreSpec]{Version: 1, Identifier: "one", Spec: &mockStoreSpec{Name: "First", Value: 1}},
				"two.json": Asset[*mockStoreSpec]{Version: 1, Identifier: "two", Spec: &mockStoreSpec{Name: "Second", Value: 2}},
			},
			expCount: 2,
		},
		"ignores other files": {
			files: map[string]any{
				"one.json":     Asset[*mockStoreSpec]{Version: 1, Identifier: "one", Spec: &mockStoreSpec{}},
				"notes.txt":    "hello",
				"one.json.tmp": "partial",
			},
			expCount: 1,
		},
		"invalid json": {
			files:  map[string]any{"bad.json": json.RawMessage(`{invalid json`)},
			expErr: "unmarshalling asset",
		},
		"missing version": {
			files: map[string]any{
				"one.json": Asset[*mockStoreSpec]{Identifier: "one", Spec: &mockStoreSpec{}},
			},
			expErr: "version must be set",
		},
		"duplicate key": {
			files: map[string]any{
				"a.json": Asset[*mockStoreSpec]{Version: 1, Identifier: "same", Spec: &mockStoreSpec{}},
				"b.json": Asset[*mockStoreSpec]{Version: 1, Identifier: "same", Spec: &mockStoreSpec{}},
			},
			expErr: "duplicate key detected: same",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			for file, content := range tt.files {
				if raw, ok := content.(json.RawMessage); ok {
					if err := os.WriteFile(filepath.Join(dir, file), raw, 0o644); err != nil {
						t.Fatalf("failed to write test file: %v", err)
					}
					continue
				}
				writeAsset(t, dir, file, content)
			}

			store, err := NewFileStore[*mockStoreSpec](dir)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "record count", len(store.GetAll()), tt.expCount)
		})
	}
}

func TestFileStore_SaveGetDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore[*mockStoreSpec](dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = store.Save("slot-1", &mockStoreSpec{Name: "First", Value: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = store.Save("slot-1", &mockStoreSpec{Name: "Second", Value: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := store.Get("slot-1")
	testutil.AssertEqual(t, "found", ok, true)
	testutil.AssertEqual(t, "name", got.Name, "Second")

	reloaded, err := NewFileStore[*mockStoreSpec](dir)
	if err != nil {
		t.Fatalf("reloading: %v", err)
	}
	got, ok = reloaded.Get("slot-1")
	testutil.AssertEqual(t, "found after reload", ok, true)
	testutil.AssertEqual(t, "value after reload", got.Value, 2)

	_, err = os.Stat(filepath.Join(dir, "slot-1.json.tmp"))
	testutil.AssertEqual(t, "temp file left behind", os.IsNotExist(err), true)

	if err := store.Delete("slot-1"); err != nil {
		t.Fatalf("deleting: %v", err)
	}
	if err := store.Delete("slot-1"); err != nil {
		t.Fatalf("deleting twice: %v", err)
	}
	_, ok = store.Get("slot-1")
	testutil.AssertEqual(t, "found after delete", ok, false)
	_, err = os.Stat(filepath.Join(dir, "slot-1.json"))
	testutil.AssertEqual(t, "file removed", os.IsNotExist(err), true)
}

func TestFileStore_SaveRejectsBadIDs(t *testing.T) {
	store, err := NewFileStore[*mockStoreSpec](t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := map[string]struct {
		id     string
		expErr string
	}{
		"empty":     {id: "", expErr: "id must be set"},
		"traversal": {id: "../escape", expErr: "must be alphanumeric"},
		"space":     {id: "my save", expErr: "must be alphanumeric"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := store.Save(tt.id, &mockStoreSpec{})
			testutil.AssertErrorContains(t, err, tt.expErr)
			testutil.AssertEqual(t, "records", len(store.GetAll()), 0)
		})
	}
}

func TestFileStore_GetAllIsACopy(t *testing.T) {
	store, err := NewFileStore[*mockStoreSpec](t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Save("one", &mockStoreSpec{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all := store.GetAll()
	delete(all, "one")

	_, ok := store.Get("one")
	testutil.AssertEqual(t, "still stored", ok, true)
}
