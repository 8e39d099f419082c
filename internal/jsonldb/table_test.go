package jsonldb

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maruel/ksid"
)

type testRow struct {
	ID    ksid.ID `json:"id" jsonschema:"description=Unique row identifier"`
	Name  string  `json:"name" jsonschema:"description=Row name"`
	Group string  `json:"group,omitempty" jsonschema:"description=Group key for index tests"`
}

func (r *testRow) Clone() *testRow {
	out := *r
	return &out
}

func (r *testRow) GetID() ksid.ID {
	return r.ID
}

func (r *testRow) Validate() error {
	if r.ID.IsZero() {
		return errors.New("id is required")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func newTestTable(t *testing.T) (*Table[*testRow], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	table, err := NewTable[*testRow](path)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table, path
}

func TestTableAppendGet(t *testing.T) {
	t.Parallel()
	table, _ := newTestTable(t)

	row := &testRow{ID: ksid.NewID(), Name: "first"}
	if err := table.Append(row); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if table.Len() != 1 {
		t.Errorf("Len = %d, want 1", table.Len())
	}

	got := table.Get(row.ID)
	if got == nil || got.Name != "first" {
		t.Fatalf("Get = %+v", got)
	}
	// Get returns a clone; mutating it must not touch the table.
	got.Name = "mutated"
	if table.Get(row.ID).Name != "first" {
		t.Error("Get returned a shared reference")
	}

	if table.Get(ksid.NewID()) != nil {
		t.Error("Get(unknown) should be nil")
	}
}

func TestTableAppendRejectsDuplicateID(t *testing.T) {
	t.Parallel()
	table, _ := newTestTable(t)

	row := &testRow{ID: ksid.NewID(), Name: "first"}
	if err := table.Append(row); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := table.Append(&testRow{ID: row.ID, Name: "second"}); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestTableAppendRejectsInvalid(t *testing.T) {
	t.Parallel()
	table, _ := newTestTable(t)
	if err := table.Append(&testRow{ID: ksid.NewID()}); err == nil {
		t.Fatal("expected validation error for empty name")
	}
	if table.Len() != 0 {
		t.Errorf("Len = %d, want 0", table.Len())
	}
}

func TestTableUpdate(t *testing.T) {
	t.Parallel()
	table, _ := newTestTable(t)

	row := &testRow{ID: ksid.NewID(), Name: "first"}
	if err := table.Append(row); err != nil {
		t.Fatalf("Append: %v", err)
	}

	row.Name = "renamed"
	if err := table.Update(row); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := table.Get(row.ID); got.Name != "renamed" {
		t.Errorf("Name = %s", got.Name)
	}

	if err := table.Update(&testRow{ID: ksid.NewID(), Name: "ghost"}); !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestTableModify(t *testing.T) {
	t.Parallel()
	table, _ := newTestTable(t)

	row := &testRow{ID: ksid.NewID(), Name: "first"}
	if err := table.Append(row); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := table.Modify(row.ID, func(r *testRow) error {
		r.Name = "modified"
		return nil
	})
	if err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if got.Name != "modified" {
		t.Errorf("Name = %s", got.Name)
	}

	// A failing callback aborts without touching stored data.
	sentinel := errors.New("nope")
	if _, err := table.Modify(row.ID, func(r *testRow) error {
		r.Name = "discarded"
		return sentinel
	}); !errors.Is(err, sentinel) {
		t.Fatalf("Modify error = %v, want sentinel", err)
	}
	if table.Get(row.ID).Name != "modified" {
		t.Error("aborted modify leaked changes")
	}

	// Changing the id inside the callback is rejected.
	if _, err := table.Modify(row.ID, func(r *testRow) error {
		r.ID = ksid.NewID()
		return nil
	}); err == nil {
		t.Fatal("expected id change rejection")
	}

	if _, err := table.Modify(ksid.NewID(), func(r *testRow) error { return nil }); !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestTableDelete(t *testing.T) {
	t.Parallel()
	table, _ := newTestTable(t)

	a := &testRow{ID: ksid.NewID(), Name: "a"}
	b := &testRow{ID: ksid.NewID(), Name: "b"}
	c := &testRow{ID: ksid.NewID(), Name: "c"}
	for _, r := range []*testRow{a, b, c} {
		if err := table.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	if err := table.Delete(b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Len = %d, want 2", table.Len())
	}
	// Later rows stay reachable after the index reshuffle.
	if got := table.Get(c.ID); got == nil || got.Name != "c" {
		t.Errorf("Get(c) = %+v", got)
	}
	if err := table.Delete(b.ID); !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
}

func TestTablePersistence(t *testing.T) {
	t.Parallel()
	table, path := newTestTable(t)

	a := &testRow{ID: ksid.NewID(), Name: "a"}
	b := &testRow{ID: ksid.NewID(), Name: "b"}
	if err := table.Append(a); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := table.Append(b); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := table.Modify(a.ID, func(r *testRow) error {
		r.Name = "a2"
		return nil
	}); err != nil {
		t.Fatalf("Modify: %v", err)
	}

	reopened, err := NewTable[*testRow](path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Len() != 2 {
		t.Fatalf("Len = %d, want 2", reopened.Len())
	}
	if got := reopened.Get(a.ID); got.Name != "a2" {
		t.Errorf("Name = %s, want a2", got.Name)
	}

	var names []string
	for r := range reopened.All() {
		names = append(names, r.Name)
	}
	if len(names) != 2 || names[0] != "a2" || names[1] != "b" {
		t.Errorf("All = %v", names)
	}
}

func TestTableSchemaHeader(t *testing.T) {
	t.Parallel()
	table, path := newTestTable(t)
	if err := table.Append(&testRow{ID: ksid.NewID(), Name: "a"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("file has %d lines, want header + 1 row", len(lines))
	}
	if !strings.Contains(lines[0], `"version"`) || !strings.Contains(lines[0], `"columns"`) {
		t.Errorf("first line is not a schema header: %s", lines[0])
	}
	if !strings.Contains(lines[0], "Unique row identifier") {
		t.Errorf("header lacks the field description: %s", lines[0])
	}
}

func TestTableLoadsLegacyHeaderlessFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	id := ksid.NewID()
	line := `{"id":"` + id.String() + `","name":"legacy"}` + "\n"
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	table, err := NewTable[*testRow](path)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("Len = %d, want 1", table.Len())
	}
	if got := table.Get(id); got == nil || got.Name != "legacy" {
		t.Errorf("Get = %+v", got)
	}
}

type recordingObserver struct {
	appends, updates, deletes int
}

func (o *recordingObserver) OnAppend(row *testRow)       { o.appends++ }
func (o *recordingObserver) OnUpdate(prev, curr *testRow) { o.updates++ }
func (o *recordingObserver) OnDelete(row *testRow)       { o.deletes++ }

func TestTableObservers(t *testing.T) {
	t.Parallel()
	table, _ := newTestTable(t)

	row := &testRow{ID: ksid.NewID(), Name: "a"}
	if err := table.Append(row); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Existing rows are replayed into a late observer.
	obs := &recordingObserver{}
	table.AddObserver(obs)
	if obs.appends != 1 {
		t.Errorf("appends after replay = %d, want 1", obs.appends)
	}

	if _, err := table.Modify(row.ID, func(r *testRow) error {
		r.Name = "b"
		return nil
	}); err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if err := table.Delete(row.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if obs.updates != 1 || obs.deletes != 1 {
		t.Errorf("updates/deletes = %d/%d, want 1/1", obs.updates, obs.deletes)
	}
}
