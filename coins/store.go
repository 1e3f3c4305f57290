// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/lru"
	"github.com/pkg/errors"
)

const (
	// BackendLevelDB selects the goleveldb storage engine.
	BackendLevelDB = "leveldb"

	// BackendPebble selects the pebble storage engine.
	BackendPebble = "pebble"

	// DefaultMissCacheSize is the default number of transaction hashes known
	// to be absent from the store that are remembered to avoid repeated
	// lookups.
	DefaultMissCacheSize = 10000

	// maxScriptSize bounds the size of a stored public key script.
	maxScriptSize = 10000

	// coinsFlagCoinBase and coinsFlagCoinStake are the bits of the flags
	// byte of a serialized coins record.
	coinsFlagCoinBase  = 1 << 0
	coinsFlagCoinStake = 1 << 1
)

var (
	// coinsKeyPrefix prefixes the key of every coins record.
	coinsKeyPrefix = []byte{'c'}

	// bestBlockKey is the key of the hash of the block the store represents.
	bestBlockKey = []byte{'B'}

	// byteOrder is the byte order used for serialized integers.
	byteOrder = binary.LittleEndian
)

// kvBackend is the minimal key-value engine the store needs.
type kvBackend interface {
	// get returns nil without an error when the key does not exist.
	get(key []byte) ([]byte, error)

	// write atomically applies the puts and deletes.
	write(puts map[string][]byte, deletes [][]byte) error

	close() error
}

// StoreConfig describes how to open a Store.
type StoreConfig struct {
	// Backend selects the storage engine, BackendLevelDB or BackendPebble.
	Backend string

	// Path is the directory of the database.
	Path string

	// MissCacheSize is the number of absent transaction hashes remembered.
	// Zero selects DefaultMissCacheSize.
	MissCacheSize uint
}

// Store is the persistent set of unspent transaction outputs at the tip of
// the best chain.  It implements View and Writer.
//
// Store is safe for concurrent access.
type Store struct {
	db kvBackend

	// missing remembers hashes that are known to have no record.
	missing lru.Cache

	// missMtx keeps a lookup that misses from caching the miss after a
	// concurrent BatchWrite stored the record.  Lookups hold it for reads
	// from the database read until the miss is cached, writes hold it for
	// writes until the written hashes are dropped from the cache.
	missMtx sync.RWMutex
}

// Ensure Store implements the View and Writer interfaces.
var (
	_ View   = (*Store)(nil)
	_ Writer = (*Store)(nil)
)

// OpenStore opens, creating if needed, the coin store described by cfg.
func OpenStore(cfg *StoreConfig) (*Store, error) {
	var (
		db  kvBackend
		err error
	)
	switch cfg.Backend {
	case BackendLevelDB, "":
		db, err = openLevelDB(cfg.Path)
	case BackendPebble:
		db, err = openPebble(cfg.Path)
	default:
		return nil, errors.Errorf("unknown coin store backend %q",
			cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	log.Infof("Opened %s coin store at %s", cfg.Backend, cfg.Path)
	return newStore(db, cfg.MissCacheSize), nil
}

// newStore returns a store on top of an opened backend.
func newStore(db kvBackend, missCacheSize uint) *Store {
	if missCacheSize == 0 {
		missCacheSize = DefaultMissCacheSize
	}
	return &Store{
		db:      db,
		missing: lru.NewCache(missCacheSize),
	}
}

// coinsKey returns the database key of the coins of the passed hash.
func coinsKey(txHash *chainhash.Hash) []byte {
	key := make([]byte, len(coinsKeyPrefix)+chainhash.HashSize)
	copy(key, coinsKeyPrefix)
	copy(key[len(coinsKeyPrefix):], txHash[:])
	return key
}

// GetCoins loads the coins of the passed transaction.
//
// This is part of the View interface.
func (s *Store) GetCoins(txHash *chainhash.Hash) (*Coins, error) {
	if s.missing.Contains(*txHash) {
		return nil, nil
	}

	s.missMtx.RLock()
	serialized, err := s.db.get(coinsKey(txHash))
	if err == nil && serialized == nil {
		s.missing.Add(*txHash)
	}
	s.missMtx.RUnlock()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load coins for %v", txHash)
	}
	if serialized == nil {
		return nil, nil
	}

	coins, err := deserializeCoins(serialized)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt coins record for %v", txHash)
	}
	return coins, nil
}

// HaveCoins returns whether the store has unspent outputs of the passed
// transaction.
//
// This is part of the View interface.
func (s *Store) HaveCoins(txHash *chainhash.Hash) (bool, error) {
	coins, err := s.GetCoins(txHash)
	if err != nil {
		return false, err
	}
	return coins != nil, nil
}

// BestBlock returns the hash of the block the store represents.  The zero
// hash is returned for a fresh store.
//
// This is part of the View interface.
func (s *Store) BestBlock() (*chainhash.Hash, error) {
	serialized, err := s.db.get(bestBlockKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load best block")
	}
	if serialized == nil {
		return &zeroHash, nil
	}
	hash, err := chainhash.NewHash(serialized)
	if err != nil {
		return nil, errors.Wrap(err, "corrupt best block record")
	}
	return hash, nil
}

// BatchWrite atomically stores the passed coins.  Nil or pruned records are
// deleted.
//
// This is part of the Writer interface.
func (s *Store) BatchWrite(entries map[chainhash.Hash]*Coins, bestBlock *chainhash.Hash) error {
	puts := make(map[string][]byte, len(entries)+1)
	var deletes [][]byte
	for hash, coins := range entries {
		hash := hash
		key := coinsKey(&hash)
		if coins == nil || coins.IsPruned() {
			deletes = append(deletes, key)
			continue
		}
		serialized, err := serializeCoins(coins)
		if err != nil {
			return errors.Wrapf(err, "failed to serialize coins for %v",
				hash)
		}
		puts[string(key)] = serialized
	}
	if bestBlock != nil {
		puts[string(bestBlockKey)] = bestBlock[:]
	}

	s.missMtx.Lock()
	err := s.db.write(puts, deletes)
	if err == nil {
		// Hashes that now have a record must no longer be reported
		// missing.
		for hash, coins := range entries {
			if coins != nil && !coins.IsPruned() {
				s.missing.Delete(hash)
			}
		}
	}
	s.missMtx.Unlock()
	if err != nil {
		return errors.Wrap(err, "failed to write coins batch")
	}

	log.Debugf("Wrote %d coin records (%d deleted)", len(puts), len(deletes))
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.close()
}

// serializeCoins encodes coins as:
//
//	[int32 version][uint8 flags][int32 height][varint n]
//	n x ([uint8 present] [int64 value][varbytes pkScript] if present)
func serializeCoins(c *Coins) ([]byte, error) {
	var buf bytes.Buffer
	var scratch [8]byte

	byteOrder.PutUint32(scratch[:4], uint32(c.version))
	buf.Write(scratch[:4])

	var flags byte
	if c.isCoinBase {
		flags |= coinsFlagCoinBase
	}
	if c.isCoinStake {
		flags |= coinsFlagCoinStake
	}
	buf.WriteByte(flags)

	byteOrder.PutUint32(scratch[:4], uint32(c.height))
	buf.Write(scratch[:4])

	if err := wire.WriteVarInt(&buf, 0, uint64(len(c.outputs))); err != nil {
		return nil, err
	}
	for _, out := range c.outputs {
		if out == nil {
			buf.WriteByte(0)
			continue
		}
		buf.WriteByte(1)
		byteOrder.PutUint64(scratch[:], uint64(out.Value))
		buf.Write(scratch[:])
		if err := wire.WriteVarBytes(&buf, 0, out.PkScript); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// deserializeCoins decodes a record written by serializeCoins.
func deserializeCoins(serialized []byte) (*Coins, error) {
	r := bytes.NewReader(serialized)
	var scratch [8]byte

	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return nil, err
	}
	c := &Coins{version: int32(byteOrder.Uint32(scratch[:4]))}

	flags, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	c.isCoinBase = flags&coinsFlagCoinBase != 0
	c.isCoinStake = flags&coinsFlagCoinStake != 0

	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return nil, err
	}
	c.height = int32(byteOrder.Uint32(scratch[:4]))

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	if count > uint64(r.Len()) {
		return nil, errors.Errorf("output count %d exceeds remaining "+
			"%d bytes", count, r.Len())
	}

	c.outputs = make([]*wire.TxOut, count)
	for i := range c.outputs {
		present, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if present == 0 {
			continue
		}
		if _, err := io.ReadFull(r, scratch[:]); err != nil {
			return nil, err
		}
		pkScript, err := wire.ReadVarBytes(r, 0, maxScriptSize, "pkScript")
		if err != nil {
			return nil, err
		}
		c.outputs[i] = &wire.TxOut{
			Value:    int64(byteOrder.Uint64(scratch[:])),
			PkScript: pkScript,
		}
	}
	if r.Len() != 0 {
		return nil, errors.Errorf("%d trailing bytes", r.Len())
	}
	return c, nil
}
