// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/divi-project/divid/coins"
	"github.com/divi-project/divid/fees"
)

// TxDesc is a descriptor containing a transaction in the mempool along with
// additional metadata.  Descriptors are immutable once added to the pool.
type TxDesc struct {
	// Tx is the transaction associated with the entry.
	Tx *btcutil.Tx

	// Added is the time when the entry was added to the pool.
	Added time.Time

	// Height is the block height when the entry was added to the pool.
	Height int32

	// Fee is the total fee the transaction associated with the entry pays.
	Fee int64

	// FeePerKB is the fee the transaction pays in satoshi per 1000 bytes.
	FeePerKB int64

	// Size is the serialized size of the transaction.
	Size int

	// StartingPriority is the priority of the transaction when it was added
	// to the pool.
	StartingPriority float64

	// inChainInputValue is the total value of the inputs that were already
	// mined when the transaction was added.  Only those inputs age.
	inChainInputValue int64

	// modifiedSize is the size used for priority calculations.
	modifiedSize int

	// bareHash is the hash of the transaction without signature scripts.
	bareHash chainhash.Hash
}

// NewTxDesc returns a descriptor for the passed transaction paying fee that
// is about to be added to the pool at the passed height.  The view is used to
// compute the starting priority; inputs it does not know contribute nothing.
func NewTxDesc(tx *btcutil.Tx, fee int64, height int32, view coins.View) (*TxDesc, error) {
	msgTx := tx.MsgTx()
	size := msgTx.SerializeSize()
	desc := &TxDesc{
		Tx:           tx,
		Added:        time.Now(),
		Height:       height,
		Fee:          fee,
		FeePerKB:     int64(fees.NewFeeRate(btcutil.Amount(fee), size)),
		Size:         size,
		modifiedSize: calcModifiedSize(msgTx, size),
		bareHash:     BareTxHash(msgTx),
	}

	inputValueAge, inChainValue, err := calcInputValueAge(msgTx, view, height)
	if err != nil {
		return nil, err
	}
	desc.inChainInputValue = inChainValue
	desc.StartingPriority = calcPriority(inputValueAge, desc.modifiedSize)
	return desc, nil
}

// BareHash returns the hash of the transaction with its signature scripts
// removed.
func (txD *TxDesc) BareHash() *chainhash.Hash {
	return &txD.bareHash
}

// CurrentPriority returns the priority of the entry at the passed height.
// Priority grows as the inputs that were already mined on entry age.
func (txD *TxDesc) CurrentPriority(height int32) float64 {
	if txD.modifiedSize == 0 {
		return txD.StartingPriority
	}
	delta := float64(int64(height-txD.Height)*txD.inChainInputValue) /
		float64(txD.modifiedSize)
	return txD.StartingPriority + delta
}

// confirmedTx returns the entry as seen by the fee estimator.
func (txD *TxDesc) confirmedTx() fees.ConfirmedTx {
	return fees.ConfirmedTx{
		Fee:      btcutil.Amount(txD.Fee),
		Size:     txD.Size,
		Height:   txD.Height,
		Priority: txD.StartingPriority,
	}
}

// BareTxHash returns the hash of the passed transaction serialized with every
// signature script and witness removed.  Two transactions that differ only in
// their signatures share the same bare hash.
func BareTxHash(msgTx *wire.MsgTx) chainhash.Hash {
	bare := msgTx.Copy()
	for _, txIn := range bare.TxIn {
		txIn.SignatureScript = nil
		txIn.Witness = nil
	}
	return bare.TxHash()
}

// minInt is a helper function to return the minimum of two ints.  This avoids
// a math import and the need to cast to floats.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// calcModifiedSize returns the serialized size of the transaction minus the
// constant overhead of each input and enough bytes of each signature script
// to cover a pay-to-script-hash redemption with a compressed pubkey.  This
// makes additional inputs free by boosting the priority of the transaction
// accordingly, which encourages spending multiple old unspent outputs.
//
// The constant overhead for a txin is 41 bytes since the previous outpoint is
// 36 bytes + 4 bytes for the sequence + 1 byte the signature script length.
//
// A compressed pubkey pay-to-script-hash redemption with a maximum len
// signature is of the form:
// [OP_DATA_73 <73-byte sig> + OP_DATA_35 + {OP_DATA_33
// <33 byte compresed pubkey> + OP_CHECKSIG}]
//
// Thus 1 + 73 + 1 + 1 + 33 + 1 = 110
func calcModifiedSize(msgTx *wire.MsgTx, size int) int {
	overhead := 0
	for _, txIn := range msgTx.TxIn {
		overhead += 41 + minInt(110, len(txIn.SignatureScript))
	}
	if size > overhead {
		return size - overhead
	}
	return size
}

// calcPriority returns a transaction priority given its input value age and
// modified size.
func calcPriority(inputValueAge float64, modifiedSize int) float64 {
	if modifiedSize == 0 {
		return 0
	}
	return inputValueAge / float64(modifiedSize)
}

// calcInputValueAge returns the sum over the inputs of the passed transaction
// of the input value multiplied by its number of confirmations at the passed
// height, along with the total value of the inputs that are already mined.
// Inputs which are currently in the mempool and hence not mined into a block
// yet contribute no input age.
func calcInputValueAge(msgTx *wire.MsgTx, view coins.View, height int32) (float64, int64, error) {
	if blockchain.IsCoinBaseTx(msgTx) {
		return 0, 0, nil
	}

	var totalInputAge float64
	var inChainValue int64
	for _, txIn := range msgTx.TxIn {
		prevOut := &txIn.PreviousOutPoint
		entry, err := view.GetCoins(&prevOut.Hash)
		if err != nil {
			return 0, 0, err
		}
		if entry == nil {
			continue
		}
		txOut := entry.Output(prevOut.Index)
		if txOut == nil {
			continue
		}
		if coins.IsMempoolHeight(entry.Height()) {
			continue
		}
		inChainValue += txOut.Value
		if entry.Height() < height {
			totalInputAge += float64(txOut.Value) *
				float64(height-entry.Height())
		}
	}
	return totalInputAge, inChainValue, nil
}
