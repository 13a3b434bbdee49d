package bft

import (
	"encoding/binary"
	"path/filepath"

	"github.com/order-fair/hotstuff/lib"
	"github.com/dgraph-io/badger/v4"
)

// BlockStoreI persists committed blocks keyed by height. It is write-once-per-height: commit()
// (core.go) calls Put exactly once, right before advancing b_exec, never afterward. Core does not
// read the store back: OnInit always starts from genesis
type BlockStoreI interface {
	Put(height uint64, cfg *ReplicaConfig, b *Block) lib.ErrorI
	Get(cfg *ReplicaConfig, height uint64) (*Block, bool, lib.ErrorI)
	Latest() (height uint64, ok bool)
	Close() lib.ErrorI
}

// BadgerBlockStore is the on-disk BlockStoreI backing, wrapping a single badger.DB instance keyed
// by big-endian height so iteration order matches commit order
type BadgerBlockStore struct {
	db       *badger.DB
	log      lib.LoggerI
	latest   uint64
	hasBlock bool
}

// NewBadgerBlockStore() opens (or creates) the on-disk block store rooted at config.StoreConfig's
// data directory; an in-memory store is used instead when StoreConfig.InMemory is set, matching
// how the rest of the replica's persistence is configured
func NewBadgerBlockStore(cfg lib.StoreConfig, log lib.LoggerI) (*BadgerBlockStore, lib.ErrorI) {
	dir := filepath.Join(cfg.DataDirPath, cfg.DBName, "blocks")
	if cfg.InMemory {
		dir = "" // badger refuses a directory in in-memory mode
	}
	opts := badger.DefaultOptions(dir)
	opts = opts.WithInMemory(cfg.InMemory).WithLoggingLevel(badger.ERROR)
	if cfg.CacheSizeMB > 0 {
		opts = opts.WithBlockCacheSize(cfg.CacheSizeBytes())
	}
	if cfg.ValueLogSize > 0 {
		opts = opts.WithValueLogFileSize(int64(cfg.ValueLogSize))
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, lib.ErrOpenDB(err)
	}
	s := &BadgerBlockStore{db: db, log: log}
	s.loadLatest()
	return s, nil
}

// loadLatest() scans the committed keyspace once at startup to recover the highest persisted
// height; badger iterators walk keys in lexicographic order, which matches ascending
// big-endian height order
func (s *BadgerBlockStore) loadLatest() {
	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()
		it.Rewind()
		if it.Valid() {
			s.latest = binary.BigEndian.Uint64(it.Item().Key())
			s.hasBlock = true
		}
		return nil
	})
}

func heightKey(height uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, height)
	return key
}

// Put() persists b under its height, overwriting any existing entry at that height
func (s *BadgerBlockStore) Put(height uint64, _ *ReplicaConfig, b *Block) lib.ErrorI {
	bz, err := EncodeBlock(b)
	if err != nil {
		return lib.ErrStoreSet(err)
	}
	if dbErr := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(heightKey(height), bz)
	}); dbErr != nil {
		return lib.ErrStoreSet(dbErr)
	}
	if height >= s.latest || !s.hasBlock {
		s.latest, s.hasBlock = height, true
	}
	return nil
}

// Get() decodes the block persisted at height, using cfg to resolve its quorum certificate
func (s *BadgerBlockStore) Get(cfg *ReplicaConfig, height uint64) (*Block, bool, lib.ErrorI) {
	var bz []byte
	notFound := false
	if dbErr := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(heightKey(height))
		if err == badger.ErrKeyNotFound {
			notFound = true
			return nil
		} else if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			bz = append([]byte{}, val...)
			return nil
		})
	}); dbErr != nil {
		return nil, false, lib.ErrStoreGet(dbErr)
	}
	if notFound {
		return nil, false, nil
	}
	b, err := DecodeBlock(cfg, bz)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Latest() returns the highest height persisted so far
func (s *BadgerBlockStore) Latest() (uint64, bool) { return s.latest, s.hasBlock }

// Close() releases the underlying badger.DB handle
func (s *BadgerBlockStore) Close() lib.ErrorI {
	if err := s.db.Close(); err != nil {
		return lib.ErrCloseDB(err)
	}
	return nil
}
