// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/divi-project/divid/coins"
)

// CoinsView is a coins.View that layers the outputs of the transactions in a
// pool on top of a base view.  Outputs of pool transactions are reported at
// coins.MempoolHeight.
//
// A CoinsView holds no state of its own and is safe for concurrent access as
// long as the base view is.
type CoinsView struct {
	base coins.View
	pool *TxPool
}

// Ensure CoinsView implements the coins.View interface.
var _ coins.View = (*CoinsView)(nil)

// NewCoinsView returns a view of the outputs of the pool transactions on top
// of the passed base view.
func NewCoinsView(base coins.View, pool *TxPool) *CoinsView {
	return &CoinsView{base: base, pool: pool}
}

// getCoins is the internal function which implements the public GetCoins.
// The pool is consulted first since its transactions are complete and never
// conflict with the base view, which might instead return a record of a
// transaction with the same hash whose outputs were all spent.
//
// This function MUST be called with the mempool lock held (for reads).
func (v *CoinsView) getCoins(txHash *chainhash.Hash) (*coins.Coins, error) {
	if tx := v.pool.lookupOutpoint(txHash); tx != nil {
		return coins.NewCoins(tx.MsgTx(), coins.MempoolHeight), nil
	}

	entry, err := v.base.GetCoins(txHash)
	if err != nil || entry == nil || entry.IsPruned() {
		return nil, err
	}
	return entry, nil
}

// GetCoins returns the coins of the passed transaction from the pool when it
// is there, or from the base view otherwise.
//
// This is part of the coins.View interface.
func (v *CoinsView) GetCoins(txHash *chainhash.Hash) (*coins.Coins, error) {
	v.pool.mtx.Lock()
	defer v.pool.mtx.Unlock()

	return v.getCoins(txHash)
}

// HaveCoins returns whether either the pool or the base view has the passed
// transaction.
//
// This is part of the coins.View interface.
func (v *CoinsView) HaveCoins(txHash *chainhash.Hash) (bool, error) {
	if _, ok := v.pool.LookupOutpoint(txHash); ok {
		return true, nil
	}
	return v.base.HaveCoins(txHash)
}

// BestBlock returns the best block of the base view.
//
// This is part of the coins.View interface.
func (v *CoinsView) BestBlock() (*chainhash.Hash, error) {
	return v.base.BestBlock()
}

// GetCoinsAndPruneSpent behaves like GetCoins and additionally marks the
// outputs spent by pool transactions as spent, so only outputs that can
// still be spent right now remain.  Nil is returned when nothing remains.
//
// This function is safe for concurrent access.
func (v *CoinsView) GetCoinsAndPruneSpent(txHash *chainhash.Hash) (*coins.Coins, error) {
	v.pool.mtx.Lock()
	defer v.pool.mtx.Unlock()

	entry, err := v.getCoins(txHash)
	if err != nil || entry == nil {
		return nil, err
	}

	numOutputs := entry.NumOutputs()
	for i := 0; i < numOutputs; i++ {
		prevOut := wire.OutPoint{Hash: *txHash, Index: uint32(i)}
		if _, spent := v.pool.outpoints[prevOut]; spent {
			entry.Spend(uint32(i))
		}
	}
	if entry.IsPruned() {
		return nil, nil
	}
	return entry, nil
}
