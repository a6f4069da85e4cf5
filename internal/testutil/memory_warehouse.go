package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fleetlogix/internal/warehouse"
)

// MemoryWarehouse is an in-memory warehouse.Store for tests. Tables are
// maps keyed by the schema key column, so a test can assert on the exact
// end state the reconciler produced. The Fail flags make the matching
// operation return an error, which is how the fallback path is exercised.
type MemoryWarehouse struct {
	mu sync.Mutex

	tables  map[string]map[int64]warehouse.Row
	staging map[string][]warehouse.Row
	seq     int

	FailEnsure  bool
	FailStaging bool
	FailMerge   bool
	FailDelete  bool
	FailInsert  bool

	MergeCalls  int
	DeleteCalls int
	InsertCalls int
}

func NewMemoryWarehouse() *MemoryWarehouse {
	return &MemoryWarehouse{
		tables:  make(map[string]map[int64]warehouse.Row),
		staging: make(map[string][]warehouse.Row),
	}
}

// Table returns a copy of the current content of a table keyed by row key.
func (m *MemoryWarehouse) Table(name string) map[int64]warehouse.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]warehouse.Row, len(m.tables[name]))
	for k, v := range m.tables[name] {
		out[k] = v
	}
	return out
}

func (m *MemoryWarehouse) EnsureTable(_ context.Context, schema warehouse.TableSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailEnsure {
		return errors.New("ensure table failed")
	}
	if _, ok := m.tables[schema.Table]; !ok {
		m.tables[schema.Table] = make(map[int64]warehouse.Row)
	}
	return nil
}

func (m *MemoryWarehouse) CountRows(_ context.Context, table string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.tables[table])), nil
}

func (m *MemoryWarehouse) FetchExistingKeys(_ context.Context, schema warehouse.TableSchema) (map[int64]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make(map[int64]struct{}, len(m.tables[schema.Table]))
	for k := range m.tables[schema.Table] {
		keys[k] = struct{}{}
	}
	return keys, nil
}

func (m *MemoryWarehouse) CreateStaging(_ context.Context, schema warehouse.TableSchema) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailStaging {
		return "", errors.New("create staging failed")
	}
	m.seq++
	name := fmt.Sprintf("TEMP_%s_%06d", schema.Table, m.seq)
	m.staging[name] = nil
	return name, nil
}

func (m *MemoryWarehouse) StageRows(_ context.Context, _ warehouse.TableSchema, staging string, rows []warehouse.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailStaging {
		return errors.New("stage rows failed")
	}
	if _, ok := m.staging[staging]; !ok {
		return fmt.Errorf("unknown staging table %s", staging)
	}
	m.staging[staging] = append(m.staging[staging], rows...)
	return nil
}

func (m *MemoryWarehouse) Merge(_ context.Context, schema warehouse.TableSchema, staging string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MergeCalls++
	if m.FailMerge {
		return errors.New("merge failed")
	}
	idx := schema.KeyIndex()
	target := m.tables[schema.Table]
	for _, row := range m.staging[staging] {
		key := row[idx].(int64)
		target[key] = row
	}
	return nil
}

func (m *MemoryWarehouse) DropStaging(_ context.Context, staging string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.staging, staging)
	return nil
}

func (m *MemoryWarehouse) DeleteByKeys(_ context.Context, schema warehouse.TableSchema, keys []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.FailDelete {
		return errors.New("delete failed")
	}
	for _, k := range keys {
		delete(m.tables[schema.Table], k)
	}
	return nil
}

func (m *MemoryWarehouse) InsertRows(_ context.Context, schema warehouse.TableSchema, rows []warehouse.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.FailInsert {
		return errors.New("insert failed")
	}
	idx := schema.KeyIndex()
	for _, row := range rows {
		key := row[idx].(int64)
		m.tables[schema.Table][key] = row
	}
	return nil
}
