// internal/storage/badgerstore/badgerstore.go
package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/storage"
)

var (
	prefixAsset    = []byte("asset/")
	prefixBalance  = []byte("bal/")
	prefixTrade    = []byte("trade/")
	prefixTradeSeq = []byte("meta/trade_seq/")
	keyNextAsset   = []byte("meta/next_asset_id")
	keyTreasury    = []byte("treasury")
)

// Config for the badger-backed store.
type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
}

// badgerLogger routes badger's internal logging into zap.
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.sugar.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.sugar.Warnf(f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.sugar.Debugf(f, v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.sugar.Debugf(f, v...) }

// Store persists the catalog in an embedded badger database. Every Update
// is one badger read-write transaction.
type Store struct {
	db     *badgerdb.DB
	logger *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// Open opens or creates the database at cfg.Path.
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	logger = logger.Named("badger")

	opts := badgerdb.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else if err := os.MkdirAll(cfg.Path, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", cfg.Path, err)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = badgerLogger{sugar: logger.Sugar()}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", cfg.Path, err)
	}

	logger.Info("Badger store opened",
		zap.String("path", cfg.Path),
		zap.Bool("in_memory", cfg.InMemory),
		zap.Bool("sync_writes", cfg.SyncWrites))

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) View(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badgerdb.Txn) error {
		return fn(&tx{txn: txn})
	})
}

func (s *Store) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return fn(&tx{txn: txn, writable: true})
	})
}

func (s *Store) Close() error {
	s.logger.Info("Closing badger store")
	return s.db.Close()
}

type tx struct {
	txn      *badgerdb.Txn
	writable bool
}

func u64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func key(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func (t *tx) get(k []byte) ([]byte, bool, error) {
	item, err := t.txn.Get(k)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (t *tx) set(k, v []byte) error {
	if !t.writable {
		return domain.ErrReadOnly
	}
	return t.txn.Set(k, v)
}

func (t *tx) putJSON(k []byte, v any) error {
	if !t.writable {
		return domain.ErrReadOnly
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	return t.txn.Set(k, raw)
}

// bump increments a counter key and returns the new value.
func (t *tx) bump(k []byte) (uint64, error) {
	if !t.writable {
		return 0, domain.ErrReadOnly
	}
	raw, ok, err := t.get(k)
	if err != nil {
		return 0, err
	}
	var n uint64
	if ok {
		n = binary.BigEndian.Uint64(raw)
	}
	n++
	return n, t.txn.Set(k, u64(n))
}

func (t *tx) scan(prefix []byte, each func(val []byte) error) error {
	it := t.txn.NewIterator(badgerdb.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := each(val); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) NextAssetID() (domain.AssetID, error) {
	n, err := t.bump(keyNextAsset)
	return domain.AssetID(n), err
}

func (t *tx) GetAsset(id domain.AssetID) (*domain.Asset, error) {
	raw, ok, err := t.get(key(prefixAsset, u64(uint64(id))))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	var a domain.Asset
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode asset %d: %w", id, err)
	}
	return &a, nil
}

func (t *tx) PutAsset(asset *domain.Asset) error {
	return t.putJSON(key(prefixAsset, u64(uint64(asset.ID))), asset)
}

func (t *tx) ListAssets() ([]*domain.Asset, error) {
	var out []*domain.Asset
	err := t.scan(prefixAsset, func(val []byte) error {
		var a domain.Asset
		if err := json.Unmarshal(val, &a); err != nil {
			return fmt.Errorf("decode asset: %w", err)
		}
		out = append(out, &a)
		return nil
	})
	return out, err
}

func balanceKey(id domain.AssetID, holder solana.PublicKey) []byte {
	return key(prefixBalance, u64(uint64(id)), holder.Bytes())
}

func (t *tx) Balance(id domain.AssetID, holder solana.PublicKey) (fixedpoint.Amount, error) {
	raw, ok, err := t.get(balanceKey(id, holder))
	if err != nil || !ok {
		return fixedpoint.Zero(), err
	}
	var a fixedpoint.Amount
	if err := a.UnmarshalText(raw); err != nil {
		return fixedpoint.Zero(), fmt.Errorf("decode balance: %w", err)
	}
	return a, nil
}

func (t *tx) SetBalance(id domain.AssetID, holder solana.PublicKey, amount fixedpoint.Amount) error {
	raw, _ := amount.MarshalText()
	return t.set(balanceKey(id, holder), raw)
}

func (t *tx) Treasury() (domain.Treasury, error) {
	var tr domain.Treasury
	raw, ok, err := t.get(keyTreasury)
	if err != nil || !ok {
		return tr, err
	}
	if err := json.Unmarshal(raw, &tr); err != nil {
		return tr, fmt.Errorf("decode treasury: %w", err)
	}
	return tr, nil
}

func (t *tx) PutTreasury(tr domain.Treasury) error {
	return t.putJSON(keyTreasury, tr)
}

func (t *tx) AppendTrade(r *domain.Receipt) error {
	id := u64(uint64(r.AssetID))
	seq, err := t.bump(key(prefixTradeSeq, id))
	if err != nil {
		return err
	}
	r.Seq = seq
	return t.putJSON(key(prefixTrade, id, u64(seq)), r)
}

func (t *tx) ListTrades(id domain.AssetID) ([]*domain.Receipt, error) {
	var out []*domain.Receipt
	err := t.scan(key(prefixTrade, u64(uint64(id))), func(val []byte) error {
		var r domain.Receipt
		if err := json.Unmarshal(val, &r); err != nil {
			return fmt.Errorf("decode trade: %w", err)
		}
		out = append(out, &r)
		return nil
	})
	return out, err
}
