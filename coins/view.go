// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// zeroHash is the zero value hash (all zeros).
var zeroHash chainhash.Hash

// View is a read-only view into the set of transaction outputs.  GetCoins
// returns nil without an error when the view does not know the transaction.
// The returned coins belong to the caller.
type View interface {
	GetCoins(txHash *chainhash.Hash) (*Coins, error)
	HaveCoins(txHash *chainhash.Hash) (bool, error)
	BestBlock() (*chainhash.Hash, error)
}

// Writer is implemented by views that accept a batch of modified coins.  A
// nil or pruned entry in the batch removes the transaction from the view.
type Writer interface {
	BatchWrite(entries map[chainhash.Hash]*Coins, bestBlock *chainhash.Hash) error
}

// OutputFor returns the output referenced by the passed outpoint according to
// the view, or nil when the view does not have it available.
func OutputFor(view View, prevOut *wire.OutPoint) (*wire.TxOut, error) {
	coins, err := view.GetCoins(&prevOut.Hash)
	if err != nil || coins == nil {
		return nil, err
	}
	return coins.Output(prevOut.Index), nil
}

// cacheEntry is an entry in the ViewCache.  A nil coins pointer records that
// the base view does not know the transaction.
type cacheEntry struct {
	coins *Coins
	dirty bool
}

// ViewCache is a View layered on top of another View that keeps every record
// it touches in memory and allows them to be modified without affecting the
// base view until Flush is called.  Nesting caches is done by passing one
// cache as the base of another.
//
// A ViewCache is not safe for concurrent access.
type ViewCache struct {
	base      View
	entries   map[chainhash.Hash]*cacheEntry
	bestBlock *chainhash.Hash
}

// Ensure ViewCache implements the View and Writer interfaces.
var (
	_ View   = (*ViewCache)(nil)
	_ Writer = (*ViewCache)(nil)
)

// NewViewCache returns an empty cache on top of the passed base view.
func NewViewCache(base View) *ViewCache {
	return &ViewCache{
		base:    base,
		entries: make(map[chainhash.Hash]*cacheEntry),
	}
}

// fetch loads the entry for the passed hash from the base view if needed.
func (v *ViewCache) fetch(txHash *chainhash.Hash) (*cacheEntry, error) {
	if entry, ok := v.entries[*txHash]; ok {
		return entry, nil
	}

	entry := &cacheEntry{}
	if v.base != nil {
		coins, err := v.base.GetCoins(txHash)
		if err != nil {
			return nil, err
		}
		entry.coins = coins
	}
	v.entries[*txHash] = entry
	return entry, nil
}

// AccessCoins returns the cached coins for the passed hash without copying
// them.  The caller must not modify the result.
func (v *ViewCache) AccessCoins(txHash *chainhash.Hash) (*Coins, error) {
	entry, err := v.fetch(txHash)
	if err != nil {
		return nil, err
	}
	return entry.coins, nil
}

// ModifyCoins returns the cached coins for the passed hash marked as modified
// so changes are carried by the next flush.  It returns nil when the
// transaction is unknown.
func (v *ViewCache) ModifyCoins(txHash *chainhash.Hash) (*Coins, error) {
	entry, err := v.fetch(txHash)
	if err != nil {
		return nil, err
	}
	if entry.coins != nil {
		entry.dirty = true
	}
	return entry.coins, nil
}

// GetCoins returns a copy of the coins for the passed hash.  Fully spent
// records are reported as unknown.
//
// This is part of the View interface.
func (v *ViewCache) GetCoins(txHash *chainhash.Hash) (*Coins, error) {
	coins, err := v.AccessCoins(txHash)
	if err != nil || coins == nil || coins.IsPruned() {
		return nil, err
	}
	return coins.Clone(), nil
}

// HaveCoins returns whether the view has unspent outputs for the passed hash.
//
// This is part of the View interface.
func (v *ViewCache) HaveCoins(txHash *chainhash.Hash) (bool, error) {
	coins, err := v.AccessCoins(txHash)
	if err != nil {
		return false, err
	}
	return coins != nil && !coins.IsPruned(), nil
}

// BestBlock returns the hash of the block the view represents.  It defaults
// to the best block of the base view.
//
// This is part of the View interface.
func (v *ViewCache) BestBlock() (*chainhash.Hash, error) {
	if v.bestBlock == nil && v.base != nil {
		best, err := v.base.BestBlock()
		if err != nil {
			return nil, err
		}
		v.bestBlock = best
	}
	if v.bestBlock == nil {
		return &zeroHash, nil
	}
	return v.bestBlock, nil
}

// SetBestBlock sets the hash of the block the view represents.
func (v *ViewCache) SetBestBlock(hash *chainhash.Hash) {
	best := *hash
	v.bestBlock = &best
}

// AddCoins replaces the record for the passed hash.
func (v *ViewCache) AddCoins(txHash *chainhash.Hash, coins *Coins) {
	v.entries[*txHash] = &cacheEntry{coins: coins, dirty: true}
}

// HaveInputs returns whether every input of the passed transaction refers to
// an available output in the view.  Coinbases are always considered to have
// their inputs.
func (v *ViewCache) HaveInputs(msgTx *wire.MsgTx) (bool, error) {
	if blockchain.IsCoinBaseTx(msgTx) {
		return true, nil
	}
	for _, txIn := range msgTx.TxIn {
		prevOut := &txIn.PreviousOutPoint
		coins, err := v.AccessCoins(&prevOut.Hash)
		if err != nil {
			return false, err
		}
		if coins == nil || !coins.IsAvailable(prevOut.Index) {
			return false, nil
		}
	}
	return true, nil
}

// ValueIn returns the total value of the outputs spent by the passed
// transaction.  Missing outputs contribute nothing.
func (v *ViewCache) ValueIn(msgTx *wire.MsgTx) (int64, error) {
	if blockchain.IsCoinBaseTx(msgTx) {
		return 0, nil
	}
	var total int64
	for _, txIn := range msgTx.TxIn {
		out, err := OutputFor(v, &txIn.PreviousOutPoint)
		if err != nil {
			return 0, err
		}
		if out != nil {
			total += out.Value
		}
	}
	return total, nil
}

// ConnectTransaction spends every output referenced by the passed transaction
// and adds the outputs it creates at the given height.  An error is returned
// when an input is not available, in which case the view is left partially
// updated.
func (v *ViewCache) ConnectTransaction(msgTx *wire.MsgTx, height int32) error {
	if !blockchain.IsCoinBaseTx(msgTx) {
		for i, txIn := range msgTx.TxIn {
			prevOut := &txIn.PreviousOutPoint
			coins, err := v.ModifyCoins(&prevOut.Hash)
			if err != nil {
				return err
			}
			if coins == nil || !coins.Spend(prevOut.Index) {
				return errors.Errorf("input %d of transaction %v spends "+
					"unavailable output %v", i, msgTx.TxHash(),
					prevOut)
			}
		}
	}

	txHash := msgTx.TxHash()
	v.AddCoins(&txHash, NewCoins(msgTx, height))
	return nil
}

// BatchWrite merges the passed modified coins into the cache.
//
// This is part of the Writer interface.
func (v *ViewCache) BatchWrite(entries map[chainhash.Hash]*Coins, bestBlock *chainhash.Hash) error {
	for hash, coins := range entries {
		v.entries[hash] = &cacheEntry{coins: coins, dirty: true}
	}
	if bestBlock != nil {
		v.SetBestBlock(bestBlock)
	}
	return nil
}

// Flush writes every modified record to the base view, which must implement
// Writer, and resets the cache.
func (v *ViewCache) Flush() error {
	writer, ok := v.base.(Writer)
	if !ok {
		return errors.Errorf("base view %T does not accept writes", v.base)
	}

	modified := make(map[chainhash.Hash]*Coins)
	for hash, entry := range v.entries {
		if entry.dirty {
			modified[hash] = entry.coins
		}
	}
	if err := writer.BatchWrite(modified, v.bestBlock); err != nil {
		return err
	}

	log.Debugf("Flushed %d modified coin records", len(modified))
	v.entries = make(map[chainhash.Hash]*cacheEntry)
	return nil
}

// Len returns the number of cached records.
func (v *ViewCache) Len() int {
	return len(v.entries)
}
