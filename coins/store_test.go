// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

// storeBackends lists the engines every store test runs against.  An empty
// path opens the engine in memory.
var storeBackends = []string{BackendLevelDB, BackendPebble}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	for _, backend := range storeBackends {
		backend := backend
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			store, err := OpenStore(&StoreConfig{Backend: backend})
			require.NoError(t, err)
			defer store.Close()

			best, err := store.BestBlock()
			require.NoError(t, err)
			require.Equal(t, zeroHash, *best)

			cb := coinbaseTx(7, 5000)
			cbHash := cb.TxHash()

			// A lookup of an unknown hash is remembered as missing and
			// must be forgotten once the record is written.
			have, err := store.HaveCoins(&cbHash)
			require.NoError(t, err)
			require.False(t, have)

			cache := NewViewCache(store)
			require.NoError(t, cache.ConnectTransaction(cb, 7))
			tip := chainhash.Hash{0x07}
			cache.SetBestBlock(&tip)
			require.NoError(t, cache.Flush())

			got, err := store.GetCoins(&cbHash)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.True(t, got.IsCoinBase(), spew.Sdump(got))
			require.Equal(t, int32(7), got.Height())
			require.Equal(t, cb.TxOut[0].Value, got.Output(0).Value)
			require.Equal(t, cb.TxOut[0].PkScript, got.Output(0).PkScript)

			best, err = store.BestBlock()
			require.NoError(t, err)
			require.Equal(t, tip, *best)

			// Spending every output deletes the record.
			cache = NewViewCache(store)
			spend := spendTx([]wire.OutPoint{{Hash: cbHash}}, 4000)
			require.NoError(t, cache.ConnectTransaction(spend, 8))
			require.NoError(t, cache.Flush())

			have, err = store.HaveCoins(&cbHash)
			require.NoError(t, err)
			require.False(t, have)

			spendHash := spend.TxHash()
			have, err = store.HaveCoins(&spendHash)
			require.NoError(t, err)
			require.True(t, have)
		})
	}
}

func TestStoreOnDisk(t *testing.T) {
	t.Parallel()

	for _, backend := range storeBackends {
		path := filepath.Join(t.TempDir(), backend)
		tx := spendTx([]wire.OutPoint{{Hash: chainhash.Hash{0x11}}}, 1, 2)
		txHash := tx.TxHash()

		store, err := OpenStore(&StoreConfig{Backend: backend, Path: path})
		require.NoError(t, err)
		require.NoError(t, store.BatchWrite(map[chainhash.Hash]*Coins{
			txHash: NewCoins(tx, 3),
		}, nil))
		require.NoError(t, store.Close())

		store, err = OpenStore(&StoreConfig{Backend: backend, Path: path})
		require.NoError(t, err)
		got, err := store.GetCoins(&txHash)
		require.NoError(t, err)
		require.Equal(t, 2, got.NumOutputs())
		require.NoError(t, store.Close())
	}
}

// pausingBackend wraps a backend and parks the first read that misses until
// release is closed.
type pausingBackend struct {
	kvBackend
	missed  chan struct{}
	release chan struct{}
	parked  bool
}

func (b *pausingBackend) get(key []byte) ([]byte, error) {
	serialized, err := b.kvBackend.get(key)
	if serialized == nil && !b.parked {
		b.parked = true
		close(b.missed)
		<-b.release
	}
	return serialized, err
}

func TestStoreMissDuringWrite(t *testing.T) {
	t.Parallel()

	db, err := openLevelDB("")
	require.NoError(t, err)
	backend := &pausingBackend{
		kvBackend: db,
		missed:    make(chan struct{}),
		release:   make(chan struct{}),
	}
	store := newStore(backend, 0)
	defer store.Close()

	tx := spendTx([]wire.OutPoint{{Hash: chainhash.Hash{0x21}}}, 1)
	txHash := tx.TxHash()

	// A lookup misses, then a write stores the record before the lookup
	// caches the miss.  The record must remain visible afterwards.
	lookupDone := make(chan struct{})
	go func() {
		defer close(lookupDone)
		store.GetCoins(&txHash)
	}()
	<-backend.missed

	writeDone := make(chan error, 1)
	go func() {
		writeDone <- store.BatchWrite(map[chainhash.Hash]*Coins{
			txHash: NewCoins(tx, 5),
		}, nil)
	}()
	select {
	case err := <-writeDone:
		// The write was not held back by the pending lookup.
		require.NoError(t, err)
		writeDone <- nil
	case <-time.After(100 * time.Millisecond):
	}
	close(backend.release)
	<-lookupDone
	require.NoError(t, <-writeDone)

	got, err := store.GetCoins(&txHash)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 1, got.NumOutputs())
}

func TestStoreUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := OpenStore(&StoreConfig{Backend: "bolt"})
	require.Error(t, err)
}

func TestCoinsSerialization(t *testing.T) {
	t.Parallel()

	tx := spendTx([]wire.OutPoint{{Hash: chainhash.Hash{0x12}}}, 10, 20, 30)
	c := NewCoins(tx, 99)
	c.Spend(1)

	serialized, err := serializeCoins(c)
	require.NoError(t, err)

	got, err := deserializeCoins(serialized)
	require.NoError(t, err)
	require.Equal(t, c, got)

	// Truncated and padded records are rejected.
	_, err = deserializeCoins(serialized[:len(serialized)-1])
	require.Error(t, err)
	_, err = deserializeCoins(append(serialized, 0x00))
	require.Error(t, err)
}
