package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sergiuosvat/x402-facilitator/ledger"
	"github.com/sergiuosvat/x402-facilitator/store"
)

// fakeGateway is a scripted ledger gateway counting its calls.
type fakeGateway struct {
	mu        sync.Mutex
	sendHash  string
	sendErr   error
	simBody   json.RawMessage
	simErr    error
	sendCalls int
	simCalls  int
	lastSent  *ledger.Transaction
}

func (g *fakeGateway) SendTransaction(ctx context.Context, tx *ledger.Transaction) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sendCalls++
	g.lastSent = tx
	if g.sendErr != nil {
		return "", g.sendErr
	}
	return g.sendHash, nil
}

func (g *fakeGateway) SimulateTransaction(ctx context.Context, tx *ledger.Transaction) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.simCalls++
	if g.simErr != nil {
		return nil, g.simErr
	}
	if g.simBody != nil {
		return g.simBody, nil
	}
	return json.RawMessage(`{"status":{"status":"success"}}`), nil
}

// memoryStore is an in-memory settlement store for coordinator tests.
type memoryStore struct {
	mu   sync.Mutex
	recs map[string]*store.Settlement
}

func newMemoryStore() *memoryStore {
	return &memoryStore{recs: make(map[string]*store.Settlement)}
}

func (m *memoryStore) CreateIfAbsent(ctx context.Context, rec *store.Settlement) (*store.Settlement, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.recs[rec.ID]; ok {
		clone := *existing
		return &clone, false, nil
	}
	clone := *rec
	m.recs[rec.ID] = &clone
	result := clone
	return &result, true, nil
}

func (m *memoryStore) ReopenFailed(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok || rec.Status != store.StatusFailed {
		return false, nil
	}
	rec.Status = store.StatusPending
	return true, nil
}

func (m *memoryStore) UpdateStatus(ctx context.Context, id string, status store.SettlementStatus, txHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return errors.New("settlement not found")
	}
	rec.Status = status
	if txHash != "" {
		rec.TxHash = txHash
	}
	return nil
}

// rendezvousStore delays every settle past the initial record lookup until
// all expected settles have performed theirs, forcing the retry race.
type rendezvousStore struct {
	*memoryStore
	gate *sync.WaitGroup
}

func (s *rendezvousStore) CreateIfAbsent(ctx context.Context, rec *store.Settlement) (*store.Settlement, bool, error) {
	got, created, err := s.memoryStore.CreateIfAbsent(ctx, rec)
	s.gate.Done()
	s.gate.Wait()
	return got, created, err
}

func (m *memoryStore) get(id string) *store.Settlement {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.recs[id]; ok {
		clone := *rec
		return &clone
	}
	return nil
}
