// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

const (
	// MempoolHeight is the height assigned to coins that only exist in the
	// memory pool.  It can never be a real block height, so maturity and
	// confirmation logic can tell pending outputs apart from mined ones.
	MempoolHeight = 0x7fffffff
)

// IsMempoolHeight returns whether the passed height is the special height
// used for coins that only exist in the memory pool.
func IsMempoolHeight(height int32) bool {
	return height == MempoolHeight
}

// Coins houses the outputs of a single transaction as seen from a particular
// view of the chain along with the contextual information needed to spend
// them: the transaction version, the height of the block that contains it and
// whether it is a coinbase or coinstake.
//
// Spent and provably unspendable outputs are stored as nil so the output
// indices of the remaining entries keep matching the transaction.
type Coins struct {
	version     int32
	isCoinBase  bool
	isCoinStake bool
	height      int32
	outputs     []*wire.TxOut
}

// NewCoins returns the coins created by the passed transaction at the given
// block height.  Outputs that are provably unspendable are not tracked.
func NewCoins(msgTx *wire.MsgTx, height int32) *Coins {
	c := &Coins{
		version:     msgTx.Version,
		isCoinBase:  blockchain.IsCoinBaseTx(msgTx),
		isCoinStake: IsCoinStakeTx(msgTx),
		height:      height,
		outputs:     make([]*wire.TxOut, len(msgTx.TxOut)),
	}
	for i, txOut := range msgTx.TxOut {
		if txscript.IsUnspendable(txOut.PkScript) {
			continue
		}
		c.outputs[i] = txOut
	}
	c.cleanup()
	return c
}

// IsCoinStakeTx determines whether the passed transaction is a coinstake.  A
// coinstake spends at least one real output, has at least two outputs and
// marks itself with an empty first output.
func IsCoinStakeTx(msgTx *wire.MsgTx) bool {
	if len(msgTx.TxIn) == 0 || len(msgTx.TxOut) < 2 {
		return false
	}
	prevOut := &msgTx.TxIn[0].PreviousOutPoint
	if prevOut.Index == wire.MaxPrevOutIndex && prevOut.Hash == zeroHash {
		return false
	}
	first := msgTx.TxOut[0]
	return first.Value == 0 && len(first.PkScript) == 0
}

// Version returns the version of the transaction the coins belong to.
func (c *Coins) Version() int32 {
	return c.version
}

// IsCoinBase returns whether the coins were created by a coinbase.
func (c *Coins) IsCoinBase() bool {
	return c.isCoinBase
}

// IsCoinStake returns whether the coins were created by a coinstake.
func (c *Coins) IsCoinStake() bool {
	return c.isCoinStake
}

// Height returns the height of the block that contains the transaction, or
// MempoolHeight for coins that only exist in the memory pool.
func (c *Coins) Height() int32 {
	return c.height
}

// NumOutputs returns the number of output slots, spent ones included.
func (c *Coins) NumOutputs() int {
	return len(c.outputs)
}

// Output returns the output at the passed index, or nil if it does not exist
// or has already been spent.
func (c *Coins) Output(index uint32) *wire.TxOut {
	if uint64(index) >= uint64(len(c.outputs)) {
		return nil
	}
	return c.outputs[index]
}

// IsAvailable returns whether the output at the passed index exists and is
// unspent.
func (c *Coins) IsAvailable(index uint32) bool {
	return c.Output(index) != nil
}

// Spend marks the output at the passed index as spent.  It returns false when
// the output was not available.
func (c *Coins) Spend(index uint32) bool {
	if !c.IsAvailable(index) {
		return false
	}
	c.outputs[index] = nil
	c.cleanup()
	return true
}

// IsPruned returns whether every output has been spent.
func (c *Coins) IsPruned() bool {
	for _, out := range c.outputs {
		if out != nil {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the coins.  The scripts are shared since they
// are never modified in place.
func (c *Coins) Clone() *Coins {
	if c == nil {
		return nil
	}
	clone := *c
	clone.outputs = make([]*wire.TxOut, len(c.outputs))
	for i, out := range c.outputs {
		if out == nil {
			continue
		}
		clone.outputs[i] = &wire.TxOut{Value: out.Value, PkScript: out.PkScript}
	}
	return &clone
}

// cleanup drops trailing spent outputs.
func (c *Coins) cleanup() {
	n := len(c.outputs)
	for n > 0 && c.outputs[n-1] == nil {
		n--
	}
	c.outputs = c.outputs[:n]
}
