package remotesync

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// ErrRejected is returned for rows a MemoryRemote was told to refuse.
var ErrRejected = errors.New("row rejected by remote")

type memoryData struct {
	mu     sync.Mutex
	rows   map[string]map[string]map[string][]byte // user -> store -> key -> json
	reject map[string]bool
}

// MemoryRemote is an in-process Remote. Every user sees only their own
// rows, and deletes cascade the way the hosted foreign keys do.
type MemoryRemote struct {
	data *memoryData
	user string
}

// NewMemoryRemote returns an empty remote scoped to user.
func NewMemoryRemote(user string) *MemoryRemote {
	return &MemoryRemote{
		data: &memoryData{rows: map[string]map[string]map[string][]byte{}, reject: map[string]bool{}},
		user: user,
	}
}

// As returns a view of the same remote scoped to another user.
func (m *MemoryRemote) As(user string) *MemoryRemote {
	return &MemoryRemote{data: m.data, user: user}
}

// Reject makes every later write of key fail with ErrRejected.
func (m *MemoryRemote) Reject(key string) {
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	m.data.reject[key] = true
}

func (m *MemoryRemote) table(store string) map[string][]byte {
	u := m.data.rows[m.user]
	if u == nil {
		u = map[string]map[string][]byte{}
		m.data.rows[m.user] = u
	}
	t := u[store]
	if t == nil {
		t = map[string][]byte{}
		u[store] = t
	}
	return t
}

func (m *MemoryRemote) Fetch(_ context.Context, store string) ([]types.Entity, error) {
	if !types.IsStoreName(store) {
		return nil, types.ErrUnknownStore
	}
	m.data.mu.Lock()
	defer m.data.mu.Unlock()

	t := m.table(store)
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]types.Entity, 0, len(keys))
	for _, k := range keys {
		e, err := decodeEntity(store, t[k])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MemoryRemote) Upsert(_ context.Context, store string, rows []types.Entity) error {
	if !types.IsStoreName(store) {
		return types.ErrUnknownStore
	}
	m.data.mu.Lock()
	defer m.data.mu.Unlock()

	var failed []RowError
	t := m.table(store)
	for _, e := range rows {
		key := e.PrimaryKey()
		if m.data.reject[key] {
			failed = append(failed, RowError{Store: store, ID: key, Op: OpPush, Err: ErrRejected})
			continue
		}
		if n, ok := e.(*types.Note); ok {
			cp := *n
			cp.ContentState = types.ContentUnknown
			e = &cp
		}
		raw, err := json.Marshal(e)
		if err != nil {
			failed = append(failed, RowError{Store: store, ID: key, Op: OpPush, Err: err})
			continue
		}
		t[key] = raw
	}
	if len(failed) > 0 {
		return &PartialError{Rows: failed}
	}
	return nil
}

func (m *MemoryRemote) Delete(_ context.Context, store string, keys []string) error {
	if !types.IsStoreName(store) {
		return types.ErrUnknownStore
	}
	m.data.mu.Lock()
	defer m.data.mu.Unlock()
	for _, k := range keys {
		m.deleteLocked(store, k)
	}
	return nil
}

func (m *MemoryRemote) deleteLocked(store, key string) {
	delete(m.table(store), key)
	switch store {
	case types.StoreWorkspaces:
		for _, child := range []string{types.StoreFolders, types.StoreNotes, types.StoreCalendarEvents, types.StoreKanban} {
			m.deleteWhere(child, func(e types.Entity) bool { return workspaceOf(e) == key })
		}
	case types.StoreFolders:
		m.deleteWhere(types.StoreNotes, func(e types.Entity) bool {
			n := e.(*types.Note)
			return n.FolderID != nil && *n.FolderID == key
		})
	}
}

func (m *MemoryRemote) deleteWhere(store string, match func(types.Entity) bool) {
	t := m.table(store)
	for k, raw := range t {
		e, err := decodeEntity(store, raw)
		if err == nil && match(e) {
			delete(t, k)
		}
	}
}
