// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/divi-project/divid/coins"
	"github.com/divi-project/divid/fees"
	"github.com/stretchr/testify/require"
)

// p2pkhScript returns a pay-to-pubkey-hash script paying to a hash filled
// with the passed byte.
func p2pkhScript(fill byte) []byte {
	script := []byte{txscript.OP_DUP, txscript.OP_HASH160, txscript.OP_DATA_20}
	for i := 0; i < 20; i++ {
		script = append(script, fill)
	}
	return append(script, txscript.OP_EQUALVERIFY, txscript.OP_CHECKSIG)
}

// p2shScript returns a pay-to-script-hash script paying to a hash filled
// with the passed byte.
func p2shScript(fill byte) []byte {
	script := []byte{txscript.OP_HASH160, txscript.OP_DATA_20}
	for i := 0; i < 20; i++ {
		script = append(script, fill)
	}
	return append(script, txscript.OP_EQUAL)
}

// hash20 returns a 20 byte address hash filled with the passed byte.
func hash20(fill byte) [20]byte {
	var h [20]byte
	for i := range h {
		h[i] = fill
	}
	return h
}

// poolHarness provides a harness that includes functionality for creating and
// signing transactions as well as a fake chain that provides utxos for use in
// generating valid transactions.
type poolHarness struct {
	t     require.TestingT
	chain *coins.ViewCache
	pool  *TxPool

	// height is the chain height new pool entries are admitted at.
	height int32

	// nextFunding makes every funding transaction unique.
	nextFunding uint32
}

// newPoolHarness returns a harness around a pool built from the passed
// configuration and an empty fake chain.
func newPoolHarness(t require.TestingT, cfg *Config) *poolHarness {
	return &poolHarness{
		t:      t,
		chain:  coins.NewViewCache(nil),
		pool:   New(cfg),
		height: 100,
	}
}

// fund adds a transaction with one output of each passed value to the chain
// at the passed height and returns the outpoints of its outputs.
func (h *poolHarness) fund(height int32, values ...int64) []wire.OutPoint {
	h.nextFunding++
	var prev chainhash.Hash
	binary.LittleEndian.PutUint32(prev[:], h.nextFunding)

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: prev}, nil, nil))
	for _, v := range values {
		tx.AddTxOut(wire.NewTxOut(v, p2pkhScript(0xf0)))
	}
	return h.addToChain(tx, height)
}

// fundCoinbase adds a coinbase paying the passed value to the chain at the
// passed height and returns the outpoint of its output.
func (h *poolHarness) fundCoinbase(height int32, value int64) wire.OutPoint {
	h.nextFunding++
	sigScript := make([]byte, 6)
	binary.LittleEndian.PutUint32(sigScript, h.nextFunding)

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{},
		wire.MaxPrevOutIndex), sigScript, nil))
	tx.AddTxOut(wire.NewTxOut(value, p2pkhScript(0xcb)))
	return h.addToChain(tx, height)[0]
}

// fundCoinstake adds a coinstake paying the passed value to the chain at the
// passed height and returns the outpoint of its paying output.
func (h *poolHarness) fundCoinstake(height int32, value int64) wire.OutPoint {
	h.nextFunding++
	var prev chainhash.Hash
	binary.LittleEndian.PutUint32(prev[:], h.nextFunding)

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: prev}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(0, nil))
	tx.AddTxOut(wire.NewTxOut(value, p2pkhScript(0xc5)))
	return h.addToChain(tx, height)[1]
}

// addToChain adds the outputs of the passed transaction to the fake chain.
func (h *poolHarness) addToChain(tx *wire.MsgTx, height int32) []wire.OutPoint {
	txHash := tx.TxHash()
	h.chain.AddCoins(&txHash, coins.NewCoins(tx, height))

	outPoints := make([]wire.OutPoint, len(tx.TxOut))
	for i := range tx.TxOut {
		outPoints[i] = wire.OutPoint{Hash: txHash, Index: uint32(i)}
	}
	return outPoints
}

// newTx returns a transaction spending the passed outpoints into outputs of
// the passed values paying to pay-to-pubkey-hash scripts.
func newTx(prevOuts []wire.OutPoint, values ...int64) *btcutil.Tx {
	tx := wire.NewMsgTx(1)
	for i := range prevOuts {
		tx.AddTxIn(wire.NewTxIn(&prevOuts[i], []byte{txscript.OP_TRUE}, nil))
	}
	for i, v := range values {
		tx.AddTxOut(wire.NewTxOut(v, p2pkhScript(byte(i+1))))
	}
	return btcutil.NewTx(tx)
}

// outPoint returns the outpoint of output index of the passed transaction.
func outPoint(tx *btcutil.Tx, index uint32) wire.OutPoint {
	return wire.OutPoint{Hash: *tx.Hash(), Index: index}
}

// view returns the pool overlay on top of the fake chain.
func (h *poolHarness) view() *CoinsView {
	return NewCoinsView(h.chain, h.pool)
}

// add adds the passed transaction paying fee to the pool.
func (h *poolHarness) add(tx *btcutil.Tx, fee int64) *TxDesc {
	txD, err := NewTxDesc(tx, fee, h.height, h.view())
	require.NoError(h.t, err)
	require.True(h.t, h.pool.AddUnchecked(tx.Hash(), txD, h.view()))
	return txD
}

// chainTx adds to the pool a transaction spending the first output of each
// passed parent, or a fresh funding output when no parent is given.
func (h *poolHarness) chainTx(parents ...*btcutil.Tx) *btcutil.Tx {
	var prevOuts []wire.OutPoint
	for _, parent := range parents {
		prevOuts = append(prevOuts, outPoint(parent, 0))
	}
	if len(prevOuts) == 0 {
		prevOuts = h.fund(1, 100000)
	}
	tx := newTx(prevOuts, 40000, 40000)
	h.add(tx, 20000)
	return tx
}

// hashes returns the hashes of the passed transactions.
func hashes(txns []*btcutil.Tx) []chainhash.Hash {
	result := make([]chainhash.Hash, len(txns))
	for i, tx := range txns {
		result[i] = *tx.Hash()
	}
	return result
}

// recordingEstimator is a FeeEstimator that records the blocks it sees.
type recordingEstimator struct {
	mtx     sync.Mutex
	seen    [][]fees.ConfirmedTx
	heights []int32
}

func (e *recordingEstimator) SeenBlock(entries []fees.ConfirmedTx, height int32, _ fees.FeeRate) {
	e.mtx.Lock()
	e.seen = append(e.seen, entries)
	e.heights = append(e.heights, height)
	e.mtx.Unlock()
}

func (e *recordingEstimator) EstimateFee(int) fees.FeeRate { return 12345 }
func (e *recordingEstimator) EstimatePriority(int) float64 { return 7 }
func (e *recordingEstimator) Write(io.Writer) error { return nil }
func (e *recordingEstimator) Read(io.Reader, fees.FeeRate) error { return nil }

// errView is a coins.View whose every lookup fails.
type errView struct{}

func (errView) GetCoins(*chainhash.Hash) (*coins.Coins, error) {
	return nil, io.ErrUnexpectedEOF
}

func (errView) HaveCoins(*chainhash.Hash) (bool, error) {
	return false, io.ErrUnexpectedEOF
}

func (errView) BestBlock() (*chainhash.Hash, error) {
	return nil, io.ErrUnexpectedEOF
}
