package testutil

import (
	"context"
	"sync"

	"github.com/roach88/walletsync/internal/domain"
	"github.com/roach88/walletsync/internal/transport"
)

// MemDocs is an in-memory DocumentStore. Push notifies subscribers
// synchronously, which keeps delivery order deterministic in tests.
//
// Error injection: set PushErr or ExistsErr to make the corresponding
// call fail.
type MemDocs struct {
	mu    sync.Mutex
	docs  map[string]domain.GlobalData
	subs  map[string]map[int]func(domain.GlobalData)
	nextN int

	PushErr   error
	ExistsErr error
}

// NewMemDocs creates an empty in-memory document store.
func NewMemDocs() *MemDocs {
	return &MemDocs{
		docs: make(map[string]domain.GlobalData),
		subs: make(map[string]map[int]func(domain.GlobalData)),
	}
}

// Exists implements transport.DocumentStore.
func (m *MemDocs) Exists(_ context.Context, walletID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	_, ok := m.docs[walletID]
	return ok, nil
}

// Push implements transport.DocumentStore.
func (m *MemDocs) Push(_ context.Context, walletID string, d domain.GlobalData) error {
	m.mu.Lock()
	if m.PushErr != nil {
		err := m.PushErr
		m.mu.Unlock()
		return err
	}
	stored := d.Clone()
	m.docs[walletID] = stored
	var subs []func(domain.GlobalData)
	for _, fn := range m.subs[walletID] {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(stored.Clone())
	}
	return nil
}

// Subscribe implements transport.DocumentStore. If the document already
// exists its current state is delivered immediately.
func (m *MemDocs) Subscribe(_ context.Context, walletID string, onUpdate func(domain.GlobalData)) (func(), error) {
	m.mu.Lock()
	if m.subs[walletID] == nil {
		m.subs[walletID] = make(map[int]func(domain.GlobalData))
	}
	n := m.nextN
	m.nextN++
	m.subs[walletID][n] = onUpdate
	current, ok := m.docs[walletID]
	m.mu.Unlock()

	if ok {
		onUpdate(current.Clone())
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[walletID], n)
			m.mu.Unlock()
		})
	}
	return cancel, nil
}

// Get returns the stored document and whether it exists.
func (m *MemDocs) Get(walletID string) (domain.GlobalData, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[walletID]
	if !ok {
		return domain.GlobalData{}, false
	}
	return d.Clone(), true
}

var _ transport.DocumentStore = (*MemDocs)(nil)
