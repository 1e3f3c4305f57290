// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/divi-project/divid/coins"
)

// checkHeight is the height pool transactions are connected at while
// replaying them during a sanity check.
const checkHeight = 1000000

// Check verifies the consistency of the pool against the passed view of the
// chain when sanity checking is enabled, and does nothing otherwise.  Every
// transaction is replayed on a scratch copy of the view in dependency order
// and must spend only available outputs, either from the view or from another
// pool transaction.  The verifier, when not nil, must also accept the inputs
// of every transaction.  All indexes must agree with the pool contents and
// the size total must match.
//
// Any violation is a programming error and panics with an AssertError.
//
// The view is read with the pool lock held, so it must not be a CoinsView
// over this pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) Check(view coins.View, verifier InputsVerifier) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	if !mp.cfg.SanityCheck {
		return
	}

	log.Debugf("Checking mempool with %d transactions and %d inputs",
		len(mp.pool), len(mp.outpoints))

	scratch := coins.NewViewCache(view)
	var checkTotal uint64
	var waiting []*TxDesc
	for hash, txD := range mp.pool {
		assert(hash == *txD.Tx.Hash(), "transaction %v stored under %v",
			txD.Tx.Hash(), hash)
		checkTotal += uint64(txD.Size)

		dependsWait := false
		for i, txIn := range txD.Tx.MsgTx().TxIn {
			prevOut := txIn.PreviousOutPoint

			// Every input must refer to an available output of the
			// chain or of another pool transaction.
			if parent := mp.lookupOutpoint(&prevOut.Hash); parent != nil {
				assert(int(prevOut.Index) < len(parent.MsgTx().TxOut),
					"input %d of %v spends missing output %v", i, hash,
					prevOut)
				dependsWait = true
			} else {
				entry, err := view.GetCoins(&prevOut.Hash)
				assert(err == nil, "unable to fetch coins for %v: %v",
					prevOut.Hash, err)
				assert(entry != nil && entry.IsAvailable(prevOut.Index),
					"input %d of %v spends unavailable output %v", i,
					hash, prevOut)
			}

			spender, exists := mp.outpoints[prevOut]
			assert(exists, "input %d of %v has no spend entry", i, hash)
			assert(spender.tx == txD.Tx, "spend entry of %v points to %v "+
				"instead of %v", prevOut, spender.tx.Hash(), hash)
			assert(spender.index == uint32(i), "spend entry of %v has "+
				"input %d instead of %d", prevOut, spender.index, i)
		}

		if dependsWait {
			waiting = append(waiting, txD)
			continue
		}
		mp.checkConnect(txD, scratch, verifier)
	}

	stepsSinceLastRemove := 0
	for len(waiting) > 0 {
		txD := waiting[0]
		waiting = waiting[1:]

		haveInputs, err := scratch.HaveInputs(txD.Tx.MsgTx())
		assert(err == nil, "unable to fetch inputs of %v: %v",
			txD.Tx.Hash(), err)
		if !haveInputs {
			waiting = append(waiting, txD)
			stepsSinceLastRemove++
			assert(stepsSinceLastRemove < len(waiting), "%d transactions "+
				"wait on inputs that never become available", len(waiting))
			continue
		}
		mp.checkConnect(txD, scratch, verifier)
		stepsSinceLastRemove = 0
	}

	for prevOut, spender := range mp.outpoints {
		txD, exists := mp.pool[*spender.tx.Hash()]
		assert(exists, "spend entry of %v points to %v which is not in "+
			"the pool", prevOut, spender.tx.Hash())
		assert(txD.Tx == spender.tx, "spend entry of %v points to a stale "+
			"copy of %v", prevOut, spender.tx.Hash())
		txIns := txD.Tx.MsgTx().TxIn
		assert(int(spender.index) < len(txIns), "spend entry of %v points "+
			"to missing input %d of %v", prevOut, spender.index,
			spender.tx.Hash())
		assert(txIns[spender.index].PreviousOutPoint == prevOut, "spend "+
			"entry of %v points to input %d of %v which spends %v",
			prevOut, spender.index, spender.tx.Hash(),
			txIns[spender.index].PreviousOutPoint)
	}

	for bareHash, txD := range mp.bareHashes {
		assert(txD.bareHash == bareHash, "bare hash %v maps to %v with "+
			"bare hash %v", bareHash, txD.Tx.Hash(), txD.bareHash)
		assert(mp.pool[*txD.Tx.Hash()] == txD, "bare hash %v maps to %v "+
			"which is not in the pool", bareHash, txD.Tx.Hash())
	}
	for hash := range mp.addressInserted {
		_, exists := mp.pool[hash]
		assert(exists, "address index holds removed transaction %v", hash)
	}
	for hash := range mp.spentInserted {
		_, exists := mp.pool[hash]
		assert(exists, "spent index holds removed transaction %v", hash)
	}

	assert(mp.totalTxSize == checkTotal, "total transaction size %d does "+
		"not match the sum of the entries %d", mp.totalTxSize, checkTotal)
}

// checkConnect verifies the inputs of the passed entry against the scratch
// view and then connects it so its outputs can be spent by its descendants.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) checkConnect(txD *TxDesc, scratch *coins.ViewCache, verifier InputsVerifier) {
	msgTx := txD.Tx.MsgTx()
	if verifier != nil {
		err := verifier.CheckInputs(txD.Tx, scratch)
		assert(err == nil, "inputs of %v rejected: %v", txD.Tx.Hash(), err)
	} else {
		haveInputs, err := scratch.HaveInputs(msgTx)
		assert(err == nil && haveInputs, "inputs of %v unavailable: %v",
			txD.Tx.Hash(), err)
	}

	err := scratch.ConnectTransaction(msgTx, checkHeight)
	assert(err == nil, "unable to connect %v: %v", txD.Tx.Hash(), err)

	// Descendants may refer to the outputs by the bare hash.
	if txD.bareHash != *txD.Tx.Hash() {
		scratch.AddCoins(&txD.bareHash, coins.NewCoins(msgTx, checkHeight))
	}
}
