// Package jsonldb provides thread-safe JSONL file storage with schema management.
//
// It offers Table[T] for generic type-safe row storage. All data types stored
// in Table[T] must implement the Row interface (Clone, GetID, Validate).
// Table uses read-write locks for concurrent access; secondary indexes stay
// synchronized through the TableObserver interface.
package jsonldb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"

	"github.com/maruel/ksid"
)

// Row is implemented by types that can be stored in a Table.
type Row[T any] interface {
	// Clone returns a deep copy of the row.
	Clone() T
	// GetID returns the row's unique identifier.
	GetID() ksid.ID
	// Validate checks that the row is well-formed before it is persisted.
	Validate() error
}

// TableObserver is notified of table mutations. Used by secondary indexes.
type TableObserver[T any] interface {
	OnAppend(row T)
	OnUpdate(prev, curr T)
	OnDelete(row T)
}

// ErrRowNotFound is returned when a row with the requested ID does not exist.
var ErrRowNotFound = errors.New("row not found")

// Table handles storage and in-memory caching for a single table in JSONL format.
//
// The first line of the backing file is a schema header describing the row
// type; data rows follow, one JSON object per line.
type Table[T Row[T]] struct {
	path      string
	header    schemaHeader
	mu        sync.RWMutex
	rows      []T
	byID      map[ksid.ID]int
	observers []TableObserver[T]
}

// NewTable creates a new Table and loads all data from the file.
func NewTable[T Row[T]](path string) (*Table[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	columns, err := schemaFromType[T]()
	if err != nil {
		return nil, fmt.Errorf("failed to derive schema for %s: %w", path, err)
	}
	table := &Table[T]{
		path:   path,
		header: schemaHeader{Version: currentVersion, Columns: columns},
		byID:   make(map[ksid.ID]int),
	}
	if err := table.load(); err != nil {
		return nil, err
	}
	return table, nil
}

// AddObserver registers an observer and replays existing rows into it.
func (t *Table[T]) AddObserver(o TableObserver[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
	for _, row := range t.rows {
		o.OnAppend(row)
	}
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Get returns a clone of the row with the given ID, or the zero value if absent.
func (t *Table[T]) Get(id ksid.ID) T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.byID[id]
	if !ok {
		var zero T
		return zero
	}
	return t.rows[i].Clone()
}

// All returns an iterator over clones of all rows in insertion order.
func (t *Table[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, row := range t.rows {
			if !yield(row.Clone()) {
				return
			}
		}
	}
}

// Append adds a new row to the table and persists it.
func (t *Table[T]) Append(row T) error {
	if err := row.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byID[row.GetID()]; exists {
		return fmt.Errorf("duplicate row id %s", row.GetID())
	}

	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}
	if err := t.appendLine(data); err != nil {
		return err
	}

	stored := row.Clone()
	t.byID[stored.GetID()] = len(t.rows)
	t.rows = append(t.rows, stored)
	t.notify(func(o TableObserver[T]) { o.OnAppend(stored) })
	return nil
}

// Update replaces the row with the same ID and persists the full table.
func (t *Table[T]) Update(row T) error {
	if err := row.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.byID[row.GetID()]
	if !ok {
		return ErrRowNotFound
	}
	prev := t.rows[i]
	t.rows[i] = row.Clone()
	if err := t.persist(); err != nil {
		t.rows[i] = prev
		return err
	}
	curr := t.rows[i]
	t.notify(func(o TableObserver[T]) { o.OnUpdate(prev, curr) })
	return nil
}

// Modify atomically applies fn to the row with the given ID and persists the
// result. fn receives a private clone; returning an error aborts the update.
func (t *Table[T]) Modify(id ksid.ID, fn func(row T) error) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	i, ok := t.byID[id]
	if !ok {
		return zero, ErrRowNotFound
	}
	prev := t.rows[i]
	next := prev.Clone()
	if err := fn(next); err != nil {
		return zero, err
	}
	if next.GetID() != id {
		return zero, errors.New("modify must not change the row id")
	}
	if err := next.Validate(); err != nil {
		return zero, err
	}
	t.rows[i] = next
	if err := t.persist(); err != nil {
		t.rows[i] = prev
		return zero, err
	}
	t.notify(func(o TableObserver[T]) { o.OnUpdate(prev, next) })
	return next.Clone(), nil
}

// Delete removes the row with the given ID and persists the full table.
func (t *Table[T]) Delete(id ksid.ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.byID[id]
	if !ok {
		return ErrRowNotFound
	}
	removed := t.rows[i]
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	delete(t.byID, id)
	for j := i; j < len(t.rows); j++ {
		t.byID[t.rows[j].GetID()] = j
	}
	if err := t.persist(); err != nil {
		return err
	}
	t.notify(func(o TableObserver[T]) { o.OnDelete(removed) })
	return nil
}

// notify calls fn for every registered observer. Caller holds the lock.
func (t *Table[T]) notify(fn func(o TableObserver[T])) {
	for _, o := range t.observers {
		fn(o)
	}
}

func (t *Table[T]) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.rows = []T{}
			return nil
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var rows []T
	first := true
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			var header schemaHeader
			if err := json.Unmarshal(line, &header); err == nil && header.Version != "" {
				if err := header.Validate(); err != nil {
					return fmt.Errorf("invalid schema header in %s: %w", t.path, err)
				}
				continue
			}
			// No header: legacy file, first line is data.
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to unmarshal row in %s: %w", t.path, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}

	t.rows = rows
	t.byID = make(map[ksid.ID]int, len(rows))
	for i, row := range rows {
		t.byID[row.GetID()] = i
	}
	return nil
}

// appendLine appends one marshaled row, writing the schema header first if the
// file does not exist yet. Caller holds the lock.
func (t *Table[T]) appendLine(data []byte) error {
	_, statErr := os.Stat(t.path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G302: table files are not secrets
	if err != nil {
		return fmt.Errorf("failed to open table file for append: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if fresh {
		header, err := json.Marshal(t.header)
		if err != nil {
			return fmt.Errorf("failed to marshal schema header: %w", err)
		}
		if _, err := f.Write(append(header, '\n')); err != nil {
			return fmt.Errorf("failed to write schema header: %w", err)
		}
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	if _, err := f.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// persist rewrites the full table file atomically. Caller holds the lock.
func (t *Table[T]) persist() error {
	rows := t.rows
	var buf bytes.Buffer
	header, err := json.Marshal(t.header)
	if err != nil {
		return fmt.Errorf("failed to marshal schema header: %w", err)
	}
	buf.Write(header)
	buf.WriteByte('\n')
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil { //nolint:gosec // G306: table files are not secrets
		return fmt.Errorf("failed to write table file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		return fmt.Errorf("failed to replace table file: %w", err)
	}
	return nil
}
