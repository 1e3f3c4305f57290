// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// PrioritiseTransaction adjusts the fee the transaction with the passed hash
// is treated as paying by feeDelta, and its priority by the same amount.  The
// adjustment does not require the transaction to be in the pool and lasts
// until the transaction is mined or ClearPrioritisation is called.
//
// This function is safe for concurrent access.
func (mp *TxPool) PrioritiseTransaction(hash *chainhash.Hash, fee btcutil.Amount) {
	priority := float64(fee)

	mp.mtx.Lock()
	delta := mp.feeDeltas[*hash]
	delta.priority += priority
	delta.fee += fee
	mp.feeDeltas[*hash] = delta
	mp.mtx.Unlock()

	log.Infof("PrioritiseTransaction: %v priority += %f, fee += %v", hash,
		priority, fee)
}

// ApplyDeltas adds the manual adjustment of the transaction with the passed
// hash to the passed priority and fee.
//
// This function is safe for concurrent access.
func (mp *TxPool) ApplyDeltas(hash *chainhash.Hash, priority *float64, fee *btcutil.Amount) {
	mp.mtx.Lock()
	delta, ok := mp.feeDeltas[*hash]
	mp.mtx.Unlock()

	if !ok {
		return
	}
	*priority += delta.priority
	*fee += delta.fee
}

// ClearPrioritisation removes the manual adjustment of the transaction with
// the passed hash.
//
// This function is safe for concurrent access.
func (mp *TxPool) ClearPrioritisation(hash *chainhash.Hash) {
	mp.mtx.Lock()
	delete(mp.feeDeltas, *hash)
	mp.mtx.Unlock()
}

// IsPrioritizedTransaction returns whether the transaction with the passed
// hash has a manual adjustment.
//
// This function is safe for concurrent access.
func (mp *TxPool) IsPrioritizedTransaction(hash *chainhash.Hash) bool {
	mp.mtx.Lock()
	_, ok := mp.feeDeltas[*hash]
	mp.mtx.Unlock()

	return ok
}
