// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/divi-project/divid/coins"
	"github.com/divi-project/divid/fees"
)

const (
	// DefaultCoinbaseMaturity is the number of blocks a coinbase or
	// coinstake output must wait before it can be spent.
	DefaultCoinbaseMaturity = 20

	// DefaultMinRelayTxFee is the minimum fee in satoshi per 1000 bytes
	// that is required for a transaction to be treated as paying a fee.
	DefaultMinRelayTxFee = fees.FeeRate(10000)
)

// Config is a descriptor containing the memory pool configuration.
type Config struct {
	// MinRelayTxFee is the minimum fee rate considered a non-zero fee.  It
	// is also the fee rate reported when no estimate is available.
	MinRelayTxFee fees.FeeRate

	// AddressIndex enables the index of pending balance changes per
	// address.
	AddressIndex bool

	// SpentIndex enables the index of outputs spent by pending
	// transactions.
	SpentIndex bool

	// SanityCheck enables the expensive consistency checks performed by
	// Check and RemoveCoinbaseSpends.
	SanityCheck bool

	// CoinbaseMaturity is the number of blocks a coinbase or coinstake
	// output must wait before it can be spent.
	CoinbaseMaturity int32

	// FeeEstimator is consulted when blocks are connected and queried for
	// estimates.  It may be nil.
	FeeEstimator FeeEstimator
}

// inPoint identifies the input of a pool transaction spending an outpoint.
type inPoint struct {
	tx    *btcutil.Tx
	index uint32
}

// feeDelta is a manual adjustment of the priority and fee a transaction is
// treated as having.
type feeDelta struct {
	priority float64
	fee      btcutil.Amount
}

// TxPool is used as a source of transactions that need to be mined into blocks
// and relayed to other peers.  It holds transactions that were validated by
// the caller together with several indexes derived from them.
//
// It is safe for concurrent access.  A single lock serializes every operation.
type TxPool struct {
	// The following variables must only be used atomically.
	lastUpdated int64 // last time pool was updated

	mtx         sync.Mutex
	cfg         Config
	pool        map[chainhash.Hash]*TxDesc
	outpoints   map[wire.OutPoint]inPoint
	bareHashes  map[chainhash.Hash]*TxDesc
	feeDeltas   map[chainhash.Hash]feeDelta
	totalTxSize uint64

	// transactionsUpdated counts additions and removals.
	transactionsUpdated uint32

	addressIndex    map[AddressKey]map[AddressDeltaKey]AddressDelta
	addressInserted map[chainhash.Hash][]AddressDeltaKey
	spentIndex      map[SpentIndexKey]SpentIndexValue
	spentInserted   map[chainhash.Hash][]SpentIndexKey
}

// New returns a new, empty memory pool.
func New(cfg *Config) *TxPool {
	return &TxPool{
		cfg:             *cfg,
		pool:            make(map[chainhash.Hash]*TxDesc),
		outpoints:       make(map[wire.OutPoint]inPoint),
		bareHashes:      make(map[chainhash.Hash]*TxDesc),
		feeDeltas:       make(map[chainhash.Hash]feeDelta),
		addressIndex:    make(map[AddressKey]map[AddressDeltaKey]AddressDelta),
		addressInserted: make(map[chainhash.Hash][]AddressDeltaKey),
		spentIndex:      make(map[SpentIndexKey]SpentIndexValue),
		spentInserted:   make(map[chainhash.Hash][]SpentIndexKey),
	}
}

// markUpdated bumps the update counter and the last updated time.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) markUpdated() {
	mp.transactionsUpdated++
	atomic.StoreInt64(&mp.lastUpdated, time.Now().Unix())
}

// AddUnchecked adds the passed transaction to the memory pool under the
// passed hash without performing any validation.  The caller is responsible
// for only adding transactions that were fully validated against the chain
// and the pool, in particular transactions that do not spend an outpoint
// already spent by the pool.  The view is used to resolve the previous
// outputs for the address and spent indexes.  It is read before the pool
// lock is taken, so it may be a CoinsView over this pool.  It always returns
// true.
//
// This function is safe for concurrent access.
func (mp *TxPool) AddUnchecked(hash *chainhash.Hash, txD *TxDesc, view coins.View) bool {
	var prevOuts []*wire.TxOut
	if mp.cfg.AddressIndex || mp.cfg.SpentIndex {
		prevOuts = fetchPrevOutputs(txD.Tx, view)
	}

	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	mp.pool[*hash] = txD
	mp.bareHashes[txD.bareHash] = txD
	for i, txIn := range txD.Tx.MsgTx().TxIn {
		mp.outpoints[txIn.PreviousOutPoint] = inPoint{
			tx:    txD.Tx,
			index: uint32(i),
		}
	}
	mp.totalTxSize += uint64(txD.Size)
	mp.markUpdated()

	if mp.cfg.AddressIndex {
		mp.addAddressIndex(txD, prevOuts)
	}
	if mp.cfg.SpentIndex {
		mp.addSpentIndex(txD, prevOuts)
	}

	log.Tracef("Added transaction %v (%d bytes, %d in pool)", hash,
		txD.Size, len(mp.pool))
	return true
}

// removeTransaction is the internal function which implements the public
// Remove.  See the comment for Remove for more details.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeTransaction(tx *btcutil.Tx, recursive bool) []*btcutil.Tx {
	queue := []chainhash.Hash{*tx.Hash()}
	if _, exists := mp.pool[*tx.Hash()]; recursive && !exists {
		// The transaction may have been dropped during a reorganization
		// while its children are still in the pool.
		queue = mp.appendSpenders(queue, tx.Hash(), len(tx.MsgTx().TxOut))
	}

	var removed []*btcutil.Tx
	for len(queue) > 0 {
		hash := queue[0]
		queue = queue[1:]

		txD, exists := mp.pool[hash]
		if !exists {
			continue
		}

		mp.removeAddressIndex(&hash)
		mp.removeSpentIndex(&hash)

		msgTx := txD.Tx.MsgTx()
		if recursive {
			queue = mp.appendSpenders(queue, &hash, len(msgTx.TxOut))
		}
		if mp.bareHashes[txD.bareHash] == txD {
			delete(mp.bareHashes, txD.bareHash)
		}
		for _, txIn := range msgTx.TxIn {
			// A transaction added without checks may have taken over
			// the spend entry, in which case it stays with it.
			prevOut := txIn.PreviousOutPoint
			if spender, ok := mp.outpoints[prevOut]; ok && spender.tx == txD.Tx {
				delete(mp.outpoints, prevOut)
			}
		}

		removed = append(removed, txD.Tx)
		mp.totalTxSize -= uint64(txD.Size)
		delete(mp.pool, hash)
		mp.markUpdated()
	}

	return removed
}

// appendSpenders appends the hashes of the pool transactions spending any of
// the first numOutputs outputs of the passed transaction hash.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) appendSpenders(queue []chainhash.Hash, hash *chainhash.Hash, numOutputs int) []chainhash.Hash {
	for i := 0; i < numOutputs; i++ {
		prevOut := wire.OutPoint{Hash: *hash, Index: uint32(i)}
		if spender, exists := mp.outpoints[prevOut]; exists {
			queue = append(queue, *spender.tx.Hash())
		}
	}
	return queue
}

// Remove removes the passed transaction from the mempool and returns the
// removed transactions.  When recursive is set, every transaction spending an
// output of a removed transaction is removed as well, breadth first, so
// parents are always reported before their descendants.  This also happens
// when the passed transaction itself is not in the pool, which is the case
// when a reorganization failed to return it to the pool.  A non-recursive
// removal leaves any children in the pool even though they now spend outputs
// that are unknown.
//
// This function is safe for concurrent access.
func (mp *TxPool) Remove(tx *btcutil.Tx, recursive bool) []*btcutil.Tx {
	mp.mtx.Lock()
	removed := mp.removeTransaction(tx, recursive)
	mp.mtx.Unlock()

	return removed
}

// removeConflicts is the internal function which implements the public
// RemoveConflicts.  See the comment for RemoveConflicts for more details.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeConflicts(tx *btcutil.Tx) []*btcutil.Tx {
	var removed []*btcutil.Tx
	for _, txIn := range tx.MsgTx().TxIn {
		spender, exists := mp.outpoints[txIn.PreviousOutPoint]
		if !exists || spender.tx.Hash().IsEqual(tx.Hash()) {
			continue
		}
		removed = append(removed, mp.removeTransaction(spender.tx, true)...)
	}
	return removed
}

// RemoveConflicts removes every transaction that spends an outpoint also
// spent by the passed transaction along with all of their descendants and
// returns them.  This is necessary when a block is connected to the main chain
// because the block may contain transactions which were previously unknown to
// the memory pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveConflicts(tx *btcutil.Tx) []*btcutil.Tx {
	mp.mtx.Lock()
	removed := mp.removeConflicts(tx)
	mp.mtx.Unlock()

	return removed
}

// RemoveConfirmedTransactions updates the pool for a block at the passed
// height that was connected to the main chain.  The fee estimator is told
// about the pool entries the block confirms before anything is removed.  Then
// every block transaction is removed without its descendants, every other
// transaction spending the same outpoints is removed with its descendants and
// the manual prioritisation of the block transactions is cleared.  The removed
// conflicting transactions are returned.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveConfirmedTransactions(txns []*btcutil.Tx, height int32) []*btcutil.Tx {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	if mp.cfg.FeeEstimator != nil {
		var confirmed []fees.ConfirmedTx
		for _, tx := range txns {
			if txD, exists := mp.pool[*tx.Hash()]; exists {
				confirmed = append(confirmed, txD.confirmedTx())
			}
		}
		mp.cfg.FeeEstimator.SeenBlock(confirmed, height, mp.cfg.MinRelayTxFee)
	}

	var conflicts []*btcutil.Tx
	for _, tx := range txns {
		mp.removeTransaction(tx, false)
		conflicts = append(conflicts, mp.removeConflicts(tx)...)
		delete(mp.feeDeltas, *tx.Hash())
	}

	if len(conflicts) > 0 {
		log.Debugf("Removed %d conflicting %s with block at height %d",
			len(conflicts), pickNoun(len(conflicts), "transaction",
				"transactions"), height)
	}
	return conflicts
}

// RemoveCoinbaseSpends removes, along with their descendants, the
// transactions that spend a coinbase or coinstake output which is immature
// for a block at poolHeight, or an output the view does not know.  Inputs
// spending other pool transactions are not considered.  An input whose coins
// cannot be loaded because of a view error is skipped.
//
// The view is read with the pool lock held, so it must not be a CoinsView
// over this pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveCoinbaseSpends(view coins.View, poolHeight int32) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	var toRemove []*btcutil.Tx
	for _, txD := range mp.pool {
		for _, txIn := range txD.Tx.MsgTx().TxIn {
			prevHash := &txIn.PreviousOutPoint.Hash
			if mp.lookupOutpoint(prevHash) != nil {
				continue
			}
			entry, err := view.GetCoins(prevHash)
			if err != nil {
				log.Errorf("Unable to fetch coins for %v spent by %v: %v",
					prevHash, txD.Tx.Hash(), err)
				continue
			}
			if mp.cfg.SanityCheck {
				assert(entry != nil, "transaction %v spends unknown "+
					"transaction %v", txD.Tx.Hash(), prevHash)
			}
			if entry == nil || ((entry.IsCoinBase() || entry.IsCoinStake()) &&
				poolHeight-entry.Height() < mp.cfg.CoinbaseMaturity) {

				toRemove = append(toRemove, txD.Tx)
				break
			}
		}
	}

	for _, tx := range toRemove {
		mp.removeTransaction(tx, true)
	}
	if len(toRemove) > 0 {
		log.Debugf("Removed %d %s spending immature coins at height %d",
			len(toRemove), pickNoun(len(toRemove), "transaction",
				"transactions"), poolHeight)
	}
}

// Clear removes every transaction from the pool together with all of the
// indexes derived from them.  Manual prioritisations are kept.
//
// This function is safe for concurrent access.
func (mp *TxPool) Clear() {
	mp.mtx.Lock()
	mp.pool = make(map[chainhash.Hash]*TxDesc)
	mp.outpoints = make(map[wire.OutPoint]inPoint)
	mp.bareHashes = make(map[chainhash.Hash]*TxDesc)
	mp.addressIndex = make(map[AddressKey]map[AddressDeltaKey]AddressDelta)
	mp.addressInserted = make(map[chainhash.Hash][]AddressDeltaKey)
	mp.spentIndex = make(map[SpentIndexKey]SpentIndexValue)
	mp.spentInserted = make(map[chainhash.Hash][]SpentIndexKey)
	mp.totalTxSize = 0
	mp.markUpdated()
	mp.mtx.Unlock()
}

// SetSanityCheck enables or disables the consistency checks.
//
// This function is safe for concurrent access.
func (mp *TxPool) SetSanityCheck(enabled bool) {
	mp.mtx.Lock()
	mp.cfg.SanityCheck = enabled
	mp.mtx.Unlock()
}

// lookupOutpoint returns the pool transaction whose outputs are referenced by
// the passed outpoint hash.  Outpoints normally use the transaction hash but
// may use the bare hash, so both are tried.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) lookupOutpoint(hash *chainhash.Hash) *btcutil.Tx {
	if txD, exists := mp.pool[*hash]; exists {
		return txD.Tx
	}
	if txD, exists := mp.bareHashes[*hash]; exists {
		return txD.Tx
	}
	return nil
}

// QueryHashes returns the hashes of all of the transactions in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) QueryHashes() []chainhash.Hash {
	mp.mtx.Lock()
	hashes := make([]chainhash.Hash, 0, len(mp.pool))
	for hash := range mp.pool {
		hashes = append(hashes, hash)
	}
	mp.mtx.Unlock()

	return hashes
}

// Lookup returns the pool transaction with the passed hash.
//
// This function is safe for concurrent access.
func (mp *TxPool) Lookup(hash *chainhash.Hash) (*btcutil.Tx, bool) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	if txD, exists := mp.pool[*hash]; exists {
		return txD.Tx, true
	}
	return nil, false
}

// LookupBareTxHash returns the pool transaction with the passed bare hash.
//
// This function is safe for concurrent access.
func (mp *TxPool) LookupBareTxHash(bareHash *chainhash.Hash) (*btcutil.Tx, bool) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	if txD, exists := mp.bareHashes[*bareHash]; exists {
		return txD.Tx, true
	}
	return nil, false
}

// LookupOutpoint returns the pool transaction whose outputs are referenced by
// outpoints with the passed hash, which may be either its hash or its bare
// hash.
//
// This function is safe for concurrent access.
func (mp *TxPool) LookupOutpoint(hash *chainhash.Hash) (*btcutil.Tx, bool) {
	mp.mtx.Lock()
	tx := mp.lookupOutpoint(hash)
	mp.mtx.Unlock()

	return tx, tx != nil
}

// FetchTxDesc returns the descriptor of the pool transaction with the passed
// hash.
//
// This function is safe for concurrent access.
func (mp *TxPool) FetchTxDesc(hash *chainhash.Hash) (*TxDesc, error) {
	mp.mtx.Lock()
	txD, exists := mp.pool[*hash]
	mp.mtx.Unlock()

	if exists {
		return txD, nil
	}
	return nil, fmt.Errorf("transaction is not in the pool")
}

// TxDescs returns a slice of descriptors for all the transactions in the pool.
// The descriptors are to be treated as read only.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxDescs() []*TxDesc {
	mp.mtx.Lock()
	descs := make([]*TxDesc, 0, len(mp.pool))
	for _, desc := range mp.pool {
		descs = append(descs, desc)
	}
	mp.mtx.Unlock()

	return descs
}

// Exists returns whether the transaction with the passed hash is in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) Exists(hash *chainhash.Hash) bool {
	mp.mtx.Lock()
	_, exists := mp.pool[*hash]
	mp.mtx.Unlock()

	return exists
}

// ExistsBareTxHash returns whether a transaction with the passed bare hash is
// in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) ExistsBareTxHash(bareHash *chainhash.Hash) bool {
	mp.mtx.Lock()
	_, exists := mp.bareHashes[*bareHash]
	mp.mtx.Unlock()

	return exists
}

// Count returns the number of transactions in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) Count() int {
	mp.mtx.Lock()
	count := len(mp.pool)
	mp.mtx.Unlock()

	return count
}

// TotalTxSize returns the sum of the serialized sizes of the transactions in
// the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) TotalTxSize() uint64 {
	mp.mtx.Lock()
	size := mp.totalTxSize
	mp.mtx.Unlock()

	return size
}

// TransactionsUpdated returns the number of times transactions were added to
// or removed from the pool, plus any amount added by AddTransactionsUpdated.
//
// This function is safe for concurrent access.
func (mp *TxPool) TransactionsUpdated() uint32 {
	mp.mtx.Lock()
	n := mp.transactionsUpdated
	mp.mtx.Unlock()

	return n
}

// AddTransactionsUpdated increases the update counter by n.
//
// This function is safe for concurrent access.
func (mp *TxPool) AddTransactionsUpdated(n uint32) {
	mp.mtx.Lock()
	mp.transactionsUpdated += n
	mp.mtx.Unlock()
}

// LastUpdated returns the last time a transaction was added to or removed from
// the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) LastUpdated() time.Time {
	return time.Unix(atomic.LoadInt64(&mp.lastUpdated), 0)
}
