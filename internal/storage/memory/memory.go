// internal/storage/memory/memory.go
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

type balanceKey struct {
	asset  domain.AssetID
	holder solana.PublicKey
}

// Store keeps assets in an arena slice with an id index. It is not durable
// and is meant for tests and throwaway runs.
type Store struct {
	mu       sync.RWMutex
	closed   bool
	nextID   domain.AssetID
	arena    []domain.Asset
	index    map[domain.AssetID]int
	balances map[balanceKey]fixedpoint.Amount
	treasury domain.Treasury
	trades   map[domain.AssetID][]domain.Receipt
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		index:    make(map[domain.AssetID]int),
		balances: make(map[balanceKey]fixedpoint.Amount),
		trades:   make(map[domain.AssetID][]domain.Receipt),
	}
}

func (s *Store) View(_ context.Context, fn func(tx storage.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storage.ErrClosed
	}
	return fn(s.newTx(false))
}

func (s *Store) Update(_ context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	t := s.newTx(true)
	if err := fn(t); err != nil {
		return err
	}
	s.commit(t)
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) newTx(writable bool) *tx {
	return &tx{
		s:        s,
		writable: writable,
		nextID:   s.nextID,
		assets:   make(map[domain.AssetID]*domain.Asset),
		balances: make(map[balanceKey]fixedpoint.Amount),
		trades:   make(map[domain.AssetID][]domain.Receipt),
	}
}

// commit applies the overlay. It runs under the write lock and cannot fail.
func (s *Store) commit(t *tx) {
	s.nextID = t.nextID

	ids := make([]domain.AssetID, 0, len(t.assets))
	for id := range t.assets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		a := *t.assets[id].Clone()
		if slot, ok := s.index[id]; ok {
			s.arena[slot] = a
			continue
		}
		s.index[id] = len(s.arena)
		s.arena = append(s.arena, a)
	}

	for k, v := range t.balances {
		s.balances[k] = v
	}
	if t.treasury != nil {
		s.treasury = *t.treasury
	}
	for id, rs := range t.trades {
		s.trades[id] = append(s.trades[id], rs...)
	}
}

// tx stages writes in an overlay on top of the committed arena.
type tx struct {
	s        *Store
	writable bool
	nextID   domain.AssetID
	assets   map[domain.AssetID]*domain.Asset
	balances map[balanceKey]fixedpoint.Amount
	treasury *domain.Treasury
	trades   map[domain.AssetID][]domain.Receipt
}

func (t *tx) NextAssetID() (domain.AssetID, error) {
	if !t.writable {
		return 0, domain.ErrReadOnly
	}
	t.nextID++
	return t.nextID, nil
}

func (t *tx) GetAsset(id domain.AssetID) (*domain.Asset, error) {
	if a, ok := t.assets[id]; ok {
		return a.Clone(), nil
	}
	slot, ok := t.s.index[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t.s.arena[slot].Clone(), nil
}

func (t *tx) PutAsset(asset *domain.Asset) error {
	if !t.writable {
		return domain.ErrReadOnly
	}
	t.assets[asset.ID] = asset.Clone()
	return nil
}

func (t *tx) ListAssets() ([]*domain.Asset, error) {
	out := make([]*domain.Asset, 0, len(t.s.arena)+len(t.assets))
	for i := range t.s.arena {
		a := &t.s.arena[i]
		if staged, ok := t.assets[a.ID]; ok {
			out = append(out, staged.Clone())
			continue
		}
		out = append(out, a.Clone())
	}

	var fresh []*domain.Asset
	for id, a := range t.assets {
		if _, ok := t.s.index[id]; !ok {
			fresh = append(fresh, a.Clone())
		}
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].ID < fresh[j].ID })
	return append(out, fresh...), nil
}

func (t *tx) Balance(id domain.AssetID, holder solana.PublicKey) (fixedpoint.Amount, error) {
	k := balanceKey{asset: id, holder: holder}
	if v, ok := t.balances[k]; ok {
		return v, nil
	}
	return t.s.balances[k], nil
}

func (t *tx) SetBalance(id domain.AssetID, holder solana.PublicKey, amount fixedpoint.Amount) error {
	if !t.writable {
		return domain.ErrReadOnly
	}
	t.balances[balanceKey{asset: id, holder: holder}] = amount
	return nil
}

func (t *tx) Treasury() (domain.Treasury, error) {
	if t.treasury != nil {
		return *t.treasury, nil
	}
	return t.s.treasury, nil
}

func (t *tx) PutTreasury(tr domain.Treasury) error {
	if !t.writable {
		return domain.ErrReadOnly
	}
	t.treasury = &tr
	return nil
}

func (t *tx) AppendTrade(r *domain.Receipt) error {
	if !t.writable {
		return domain.ErrReadOnly
	}
	r.Seq = uint64(len(t.s.trades[r.AssetID])+len(t.trades[r.AssetID])) + 1
	t.trades[r.AssetID] = append(t.trades[r.AssetID], *r)
	return nil
}

func (t *tx) ListTrades(id domain.AssetID) ([]*domain.Receipt, error) {
	committed := t.s.trades[id]
	staged := t.trades[id]
	out := make([]*domain.Receipt, 0, len(committed)+len(staged))
	for i := range committed {
		r := committed[i]
		out = append(out, &r)
	}
	for i := range staged {
		r := staged[i]
		out = append(out, &r)
	}
	return out, nil
}
