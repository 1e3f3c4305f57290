// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/divi-project/divid/coins"
	"github.com/stretchr/testify/require"
)

func TestAddLookupRemove(t *testing.T) {
	t.Parallel()

	h := newPoolHarness(t, &Config{})
	tx := newTx(h.fund(1, 100000), 90000)
	txD := h.add(tx, 10000)

	got, ok := h.pool.Lookup(tx.Hash())
	require.True(t, ok)
	require.Equal(t, tx, got)
	require.True(t, h.pool.Exists(tx.Hash()))
	require.Equal(t, 1, h.pool.Count())
	require.Equal(t, uint64(tx.MsgTx().SerializeSize()), h.pool.TotalTxSize())
	require.Equal(t, []chainhash.Hash{*tx.Hash()}, h.pool.QueryHashes())
	require.Equal(t, []*TxDesc{txD}, h.pool.TxDescs())
	require.Equal(t, uint32(1), h.pool.TransactionsUpdated())
	require.WithinDuration(t, time.Now(), h.pool.LastUpdated(), 2*time.Second)

	desc, err := h.pool.FetchTxDesc(tx.Hash())
	require.NoError(t, err)
	require.Equal(t, txD, desc)
	require.Equal(t, int64(10000), desc.Fee)
	require.Equal(t, int32(100), desc.Height)

	removed := h.pool.Remove(tx, false)
	require.Equal(t, []*btcutil.Tx{tx}, removed)

	_, ok = h.pool.Lookup(tx.Hash())
	require.False(t, ok)
	require.False(t, h.pool.Exists(tx.Hash()))
	require.False(t, h.pool.ExistsBareTxHash(txD.BareHash()))
	require.Zero(t, h.pool.Count())
	require.Zero(t, h.pool.TotalTxSize())
	require.Equal(t, uint32(2), h.pool.TransactionsUpdated())
	require.Empty(t, h.pool.outpoints)

	_, err = h.pool.FetchTxDesc(tx.Hash())
	require.Error(t, err)

	h.pool.AddTransactionsUpdated(5)
	require.Equal(t, uint32(7), h.pool.TransactionsUpdated())
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	t.Parallel()

	h := newPoolHarness(t, &Config{AddressIndex: true, SpentIndex: true})
	present := h.chainTx()
	absent := newTx(h.fund(1, 5000), 4000)

	size := h.pool.TotalTxSize()
	updated := h.pool.TransactionsUpdated()

	for _, recursive := range []bool{false, true} {
		require.Empty(t, h.pool.Remove(absent, recursive))
		require.Equal(t, size, h.pool.TotalTxSize())
		require.Equal(t, updated, h.pool.TransactionsUpdated())
		require.Equal(t, 1, h.pool.Count())
		require.Len(t, h.pool.outpoints, 1)
		require.Len(t, h.pool.spentIndex, 1)
		require.Len(t, h.pool.addressInserted, 1)
		require.True(t, h.pool.Exists(present.Hash()))
	}
}

func TestRemoveRecursive(t *testing.T) {
	t.Parallel()

	// a has two outputs spent by b and d, and c spends b.
	h := newPoolHarness(t, &Config{})
	a := h.chainTx()
	b := h.chainTx(a)
	c := h.chainTx(b)
	d := newTx([]wire.OutPoint{outPoint(a, 1)}, 30000)
	h.add(d, 10000)

	// Non-recursive removal leaves the children dangling.
	removed := h.pool.Remove(a, false)
	require.Equal(t, hashes([]*btcutil.Tx{a}), hashes(removed))
	require.True(t, h.pool.Exists(b.Hash()))
	require.True(t, h.pool.Exists(c.Hash()))
	require.True(t, h.pool.Exists(d.Hash()))

	// Put a back and remove the whole family, parents first.
	h.add(a, 20000)
	removed = h.pool.Remove(a, true)
	require.Equal(t, hashes([]*btcutil.Tx{a, b, d, c}), hashes(removed))
	require.Zero(t, h.pool.Count())
	require.Zero(t, h.pool.TotalTxSize())
	require.Empty(t, h.pool.outpoints)
	require.Empty(t, h.pool.bareHashes)
}

func TestRemoveRecursiveAbsentParent(t *testing.T) {
	t.Parallel()

	// The parent was mined and then disconnected without returning to the
	// pool while its children stayed.
	h := newPoolHarness(t, &Config{})
	parent := newTx(h.fund(1, 100000), 40000, 40000)
	child := h.chainTx(parent)
	grandChild := h.chainTx(child)
	unrelated := h.chainTx()

	removed := h.pool.Remove(parent, true)
	require.Equal(t, hashes([]*btcutil.Tx{child, grandChild}), hashes(removed))
	require.Equal(t, 1, h.pool.Count())
	require.True(t, h.pool.Exists(unrelated.Hash()))
}

func TestRemoveConflicts(t *testing.T) {
	t.Parallel()

	h := newPoolHarness(t, &Config{})
	funding := h.fund(1, 100000, 100000)
	pending := newTx(funding[:1], 90000)
	h.add(pending, 10000)
	child := h.chainTx(pending)
	other := newTx(funding[1:], 90000)
	h.add(other, 10000)

	// A transaction spending the same output as pending, and another
	// unrelated output.
	double := newTx([]wire.OutPoint{funding[0], h.fund(1, 5)[0]}, 1)
	removed := h.pool.RemoveConflicts(double)
	require.Equal(t, hashes([]*btcutil.Tx{pending, child}), hashes(removed))
	require.True(t, h.pool.Exists(other.Hash()))

	// A transaction never conflicts with itself.
	require.Empty(t, h.pool.RemoveConflicts(other))
	require.True(t, h.pool.Exists(other.Hash()))
}

func TestRemoveConfirmedTransactions(t *testing.T) {
	t.Parallel()

	estimator := &recordingEstimator{}
	h := newPoolHarness(t, &Config{FeeEstimator: estimator})

	funding := h.fund(1, 100000, 100000)
	a := newTx(funding[:1], 90000)
	h.add(a, 10000)
	b := h.chainTx()
	childOfB := h.chainTx(b)

	// c double spends the output a spends.  Since it is added without
	// checks it takes over the spend entry.
	c := newTx([]wire.OutPoint{funding[0], funding[1]}, 150000)
	h.add(c, 50000)
	childOfC := newTx([]wire.OutPoint{outPoint(c, 0)}, 140000)
	h.add(childOfC, 10000)

	h.pool.PrioritiseTransaction(a.Hash(), 1000)
	h.pool.PrioritiseTransaction(b.Hash(), 1000)
	h.pool.PrioritiseTransaction(c.Hash(), 1000)

	conflicts := h.pool.RemoveConfirmedTransactions([]*btcutil.Tx{a, b}, 101)
	require.Equal(t, hashes([]*btcutil.Tx{c, childOfC}), hashes(conflicts))

	require.False(t, h.pool.Exists(a.Hash()))
	require.False(t, h.pool.Exists(b.Hash()))
	require.True(t, h.pool.Exists(childOfB.Hash()))
	require.Equal(t, 1, h.pool.Count())

	require.False(t, h.pool.IsPrioritizedTransaction(a.Hash()))
	require.False(t, h.pool.IsPrioritizedTransaction(b.Hash()))
	require.True(t, h.pool.IsPrioritizedTransaction(c.Hash()))

	// The estimator saw both confirmed entries while they were still in
	// the pool.
	require.Len(t, estimator.seen, 1)
	require.Equal(t, []int32{101}, estimator.heights)
	require.Len(t, estimator.seen[0], 2)
	require.Equal(t, btcutil.Amount(10000), estimator.seen[0][0].Fee)
	require.Equal(t, int32(100), estimator.seen[0][0].Height)
	require.Equal(t, a.MsgTx().SerializeSize(), estimator.seen[0][0].Size)
}

func TestRemoveConfirmedUnknownTransactions(t *testing.T) {
	t.Parallel()

	estimator := &recordingEstimator{}
	h := newPoolHarness(t, &Config{FeeEstimator: estimator})

	funding := h.fund(1, 100000)
	pending := newTx(funding, 90000)
	h.add(pending, 10000)

	// The block holds a different spend of the same output.
	mined := newTx(funding, 80000)
	h.pool.PrioritiseTransaction(mined.Hash(), 5)
	conflicts := h.pool.RemoveConfirmedTransactions([]*btcutil.Tx{mined}, 101)
	require.Equal(t, hashes([]*btcutil.Tx{pending}), hashes(conflicts))
	require.False(t, h.pool.IsPrioritizedTransaction(mined.Hash()))
	require.Empty(t, estimator.seen[0])
}

func TestRemoveCoinbaseSpends(t *testing.T) {
	t.Parallel()

	h := newPoolHarness(t, &Config{CoinbaseMaturity: 20})

	immature := newTx([]wire.OutPoint{h.fundCoinbase(10, 100000)}, 90000)
	h.add(immature, 10000)
	immatureChild := h.chainTx(immature)

	mature := newTx([]wire.OutPoint{h.fundCoinbase(5, 100000)}, 90000)
	h.add(mature, 10000)

	immatureStake := newTx([]wire.OutPoint{h.fundCoinstake(10, 100000)}, 90000)
	h.add(immatureStake, 10000)

	regular := newTx(h.fund(24, 100000), 90000)
	h.add(regular, 10000)

	unknown := newTx([]wire.OutPoint{{Hash: chainhash.Hash{0xee}}}, 1)
	h.add(unknown, 0)

	h.pool.RemoveCoinbaseSpends(h.chain, 25)

	require.False(t, h.pool.Exists(immature.Hash()))
	require.False(t, h.pool.Exists(immatureChild.Hash()))
	require.False(t, h.pool.Exists(immatureStake.Hash()))
	require.False(t, h.pool.Exists(unknown.Hash()))
	require.True(t, h.pool.Exists(mature.Hash()))
	require.True(t, h.pool.Exists(regular.Hash()))

	// Maturity is relative to the pool height, which moves back when
	// blocks are disconnected.
	h.pool.RemoveCoinbaseSpends(h.chain, 26)
	require.True(t, h.pool.Exists(mature.Hash()))
	h.pool.RemoveCoinbaseSpends(h.chain, 24)
	require.False(t, h.pool.Exists(mature.Hash()))
	require.True(t, h.pool.Exists(regular.Hash()))
}

func TestRemoveCoinbaseSpendsViewErrors(t *testing.T) {
	t.Parallel()

	h := newPoolHarness(t, &Config{CoinbaseMaturity: 20})
	tx := h.chainTx()

	// Lookup failures are not evidence of immaturity.
	h.pool.RemoveCoinbaseSpends(errView{}, 25)
	require.True(t, h.pool.Exists(tx.Hash()))

	// Under sanity checking a spend of an unknown output is fatal.
	h.pool.SetSanityCheck(true)
	require.Panics(t, func() {
		h.pool.RemoveCoinbaseSpends(coins.NewViewCache(nil), 25)
	})
}

func TestClear(t *testing.T) {
	t.Parallel()

	h := newPoolHarness(t, &Config{AddressIndex: true, SpentIndex: true})
	tx := h.chainTx()
	h.chainTx(tx)
	h.pool.PrioritiseTransaction(tx.Hash(), 100)
	updated := h.pool.TransactionsUpdated()

	h.pool.Clear()
	require.Zero(t, h.pool.Count())
	require.Zero(t, h.pool.TotalTxSize())
	require.Empty(t, h.pool.outpoints)
	require.Empty(t, h.pool.bareHashes)
	require.Empty(t, h.pool.addressIndex)
	require.Empty(t, h.pool.addressInserted)
	require.Empty(t, h.pool.spentIndex)
	require.Empty(t, h.pool.spentInserted)
	require.Equal(t, updated+1, h.pool.TransactionsUpdated())

	// Prioritisation outlives pool membership.
	require.True(t, h.pool.IsPrioritizedTransaction(tx.Hash()))
}

func TestBareHashLookup(t *testing.T) {
	t.Parallel()

	h := newPoolHarness(t, &Config{})
	funding := h.fund(1, 100000)
	tx := newTx(funding, 90000)
	txD := h.add(tx, 10000)

	// A copy with a different signature shares the bare hash.
	malleated := tx.MsgTx().Copy()
	malleated.TxIn[0].SignatureScript = []byte{0x51, 0x51}
	require.NotEqual(t, tx.MsgTx().TxHash(), malleated.TxHash())
	require.Equal(t, *txD.BareHash(), BareTxHash(malleated))
	require.NotEqual(t, *tx.Hash(), *txD.BareHash())

	got, ok := h.pool.LookupBareTxHash(txD.BareHash())
	require.True(t, ok)
	require.Equal(t, tx, got)
	require.True(t, h.pool.ExistsBareTxHash(txD.BareHash()))

	for _, hash := range []*chainhash.Hash{tx.Hash(), txD.BareHash()} {
		got, ok = h.pool.LookupOutpoint(hash)
		require.True(t, ok)
		require.Equal(t, tx, got)
	}

	_, ok = h.pool.LookupOutpoint(&chainhash.Hash{0x01})
	require.False(t, ok)

	// A child referring to the parent by its bare hash.
	child := newTx([]wire.OutPoint{{Hash: *txD.BareHash()}}, 80000)
	h.add(child, 10000)
	h.pool.SetSanityCheck(true)
	require.NotPanics(t, func() { h.pool.Check(h.chain, nil) })
}

func TestNewTxDescPriority(t *testing.T) {
	t.Parallel()

	h := newPoolHarness(t, &Config{})
	h.height = 20

	funding := h.fund(10, 100000000)
	parent := newTx(funding, 50000000, 40000000)
	parentD := h.add(parent, 10000000)

	modSize := calcModifiedSize(parent.MsgTx(), parent.MsgTx().SerializeSize())
	require.Less(t, modSize, parentD.Size)
	require.Equal(t, float64(100000000)*10/float64(modSize),
		parentD.StartingPriority)
	require.InDelta(t, parentD.StartingPriority*2, parentD.CurrentPriority(30),
		1e-6)
	require.Equal(t, int64(10000000)*1000/int64(parentD.Size), parentD.FeePerKB)

	// Inputs still in the pool contribute no priority and do not age.
	child := newTx([]wire.OutPoint{outPoint(parent, 0)}, 40000000)
	childD := h.add(child, 10000000)
	require.Zero(t, childD.StartingPriority)
	require.Zero(t, childD.CurrentPriority(1000))

	// Unknown inputs are ignored.
	orphanD, err := NewTxDesc(newTx([]wire.OutPoint{{Hash: chainhash.Hash{1}}},
		5), 0, 20, h.chain)
	require.NoError(t, err)
	require.Zero(t, orphanD.StartingPriority)

	_, err = NewTxDesc(child, 0, 20, errView{})
	require.Error(t, err)
}
