// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"bytes"
	"sort"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/divi-project/divid/coins"
)

// AddressType identifies the kind of script an address hash was taken from.
type AddressType uint8

// These constants define the address types that are indexed.
const (
	// AddressTypeNone marks a script that is not a standard address.
	AddressTypeNone AddressType = 0

	// AddressTypePubKeyHash marks a pay-to-pubkey-hash script.
	AddressTypePubKeyHash AddressType = 1

	// AddressTypeScriptHash marks a pay-to-script-hash script.
	AddressTypeScriptHash AddressType = 2
)

// AddressKey identifies an address by its type and hash.
type AddressKey struct {
	Type AddressType
	Hash [20]byte
}

// AddressDeltaKey identifies a single change to the balance of an address
// caused by an input or output of a pool transaction.
type AddressDeltaKey struct {
	AddressKey

	// TxHash is the transaction the input or output belongs to.
	TxHash chainhash.Hash

	// Index is the input or output index.
	Index uint32

	// Spending is set for inputs.
	Spending bool
}

// AddressDelta is the change to the balance of an address.
type AddressDelta struct {
	// Time is when the owning transaction entered the pool.
	Time time.Time

	// Height is the chain height when the owning transaction entered the
	// pool.
	Height int32

	// Amount is the signed change in value.  Spends are negative.
	Amount btcutil.Amount

	// PrevOut is the outpoint consumed by a spend.
	PrevOut wire.OutPoint
}

// AddressDeltaEntry pairs an address delta with its key.
type AddressDeltaEntry struct {
	Key   AddressDeltaKey
	Delta AddressDelta
}

// SpentIndexKey identifies a spent output.
type SpentIndexKey = wire.OutPoint

// SpentIndexValue describes the pool transaction spending an output.
type SpentIndexValue struct {
	// TxHash is the spending transaction.
	TxHash chainhash.Hash

	// InputIndex is the input of the spending transaction.
	InputIndex uint32

	// Height is -1 for spends that are not mined yet.
	Height int32

	// Amount is the value of the spent output.
	Amount btcutil.Amount

	// AddressType and AddressHash identify the address of the spent output.
	// AddressTypeNone with a zero hash is used for non-standard scripts.
	AddressType AddressType
	AddressHash [20]byte
}

// extractAddress returns the indexed address of the passed public key script.
func extractAddress(pkScript []byte) (AddressKey, bool) {
	var key AddressKey
	switch {
	case txscript.IsPayToScriptHash(pkScript):
		// OP_HASH160 OP_DATA_20 <hash> OP_EQUAL
		key.Type = AddressTypeScriptHash
		copy(key.Hash[:], pkScript[2:22])

	case txscript.IsPayToPubKeyHash(pkScript):
		// OP_DUP OP_HASH160 OP_DATA_20 <hash> OP_EQUALVERIFY OP_CHECKSIG
		key.Type = AddressTypePubKeyHash
		copy(key.Hash[:], pkScript[3:23])

	default:
		return key, false
	}
	return key, true
}

// fetchPrevOutputs resolves the previous output of every input of the passed
// transaction through view.  The entry of an input whose previous output is
// unknown to the view is nil.
//
// This function MUST NOT be called with the mempool lock held since view
// might be a CoinsView over the pool.
func fetchPrevOutputs(tx *btcutil.Tx, view coins.View) []*wire.TxOut {
	txIns := tx.MsgTx().TxIn
	prevOuts := make([]*wire.TxOut, len(txIns))
	for i, txIn := range txIns {
		prevOut := txIn.PreviousOutPoint
		txOut, err := coins.OutputFor(view, &prevOut)
		if err != nil || txOut == nil {
			log.Debugf("Previous output %v of input %d of %v "+
				"unavailable (%v)", prevOut, i, tx.Hash(), err)
			continue
		}
		prevOuts[i] = txOut
	}
	return prevOuts
}

// addAddressIndex adds the address deltas of the passed entry.  prevOuts
// holds the previous output of each input as returned by fetchPrevOutputs;
// inputs without one are skipped.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) addAddressIndex(txD *TxDesc, prevOuts []*wire.TxOut) {
	txHash := txD.Tx.Hash()
	msgTx := txD.Tx.MsgTx()
	var inserted []AddressDeltaKey

	insert := func(key AddressDeltaKey, delta AddressDelta) {
		deltas, ok := mp.addressIndex[key.AddressKey]
		if !ok {
			deltas = make(map[AddressDeltaKey]AddressDelta)
			mp.addressIndex[key.AddressKey] = deltas
		}
		deltas[key] = delta
		inserted = append(inserted, key)
	}

	for i, txIn := range msgTx.TxIn {
		txOut := prevOuts[i]
		if txOut == nil {
			continue
		}
		addr, ok := extractAddress(txOut.PkScript)
		if !ok {
			continue
		}
		insert(AddressDeltaKey{
			AddressKey: addr,
			TxHash:     *txHash,
			Index:      uint32(i),
			Spending:   true,
		}, AddressDelta{
			Time:    txD.Added,
			Height:  txD.Height,
			Amount:  -btcutil.Amount(txOut.Value),
			PrevOut: txIn.PreviousOutPoint,
		})
	}

	for i, txOut := range msgTx.TxOut {
		addr, ok := extractAddress(txOut.PkScript)
		if !ok {
			continue
		}
		insert(AddressDeltaKey{
			AddressKey: addr,
			TxHash:     *txHash,
			Index:      uint32(i),
		}, AddressDelta{
			Time:   txD.Added,
			Height: txD.Height,
			Amount: btcutil.Amount(txOut.Value),
		})
	}

	mp.addressInserted[*txHash] = inserted
}

// removeAddressIndex removes every address delta added for the passed
// transaction.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeAddressIndex(txHash *chainhash.Hash) {
	keys, ok := mp.addressInserted[*txHash]
	if !ok {
		return
	}
	for _, key := range keys {
		deltas := mp.addressIndex[key.AddressKey]
		delete(deltas, key)
		if len(deltas) == 0 {
			delete(mp.addressIndex, key.AddressKey)
		}
	}
	delete(mp.addressInserted, *txHash)
}

// addSpentIndex records every outpoint spent by the passed entry.  prevOuts
// is as for addAddressIndex; inputs without a previous output are skipped.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) addSpentIndex(txD *TxDesc, prevOuts []*wire.TxOut) {
	txHash := txD.Tx.Hash()
	var inserted []SpentIndexKey

	for i, txIn := range txD.Tx.MsgTx().TxIn {
		txOut := prevOuts[i]
		if txOut == nil {
			continue
		}

		prevOut := txIn.PreviousOutPoint
		value := SpentIndexValue{
			TxHash:     *txHash,
			InputIndex: uint32(i),
			Height:     -1,
			Amount:     btcutil.Amount(txOut.Value),
		}
		if addr, ok := extractAddress(txOut.PkScript); ok {
			value.AddressType = addr.Type
			value.AddressHash = addr.Hash
		}
		mp.spentIndex[prevOut] = value
		inserted = append(inserted, prevOut)
	}

	mp.spentInserted[*txHash] = inserted
}

// removeSpentIndex removes every spent record added for the passed
// transaction.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeSpentIndex(txHash *chainhash.Hash) {
	keys, ok := mp.spentInserted[*txHash]
	if !ok {
		return
	}
	for _, key := range keys {
		if mp.spentIndex[key].TxHash == *txHash {
			delete(mp.spentIndex, key)
		}
	}
	delete(mp.spentInserted, *txHash)
}

// compareDeltaKeys orders address delta keys of the same address by
// transaction hash, then index, with outputs before inputs.
func compareDeltaKeys(a, b *AddressDeltaKey) bool {
	if c := bytes.Compare(a.TxHash[:], b.TxHash[:]); c != 0 {
		return c < 0
	}
	if a.Index != b.Index {
		return a.Index < b.Index
	}
	return !a.Spending && b.Spending
}

// AddressDeltas returns the pending balance changes of the passed addresses,
// grouped by address in the order given.  When end is positive only deltas of
// transactions that entered the pool at a height in [start, end] are returned.
// Nothing is returned unless the address index is enabled.
//
// This function is safe for concurrent access.
func (mp *TxPool) AddressDeltas(addrs []AddressKey, start, end int32) []AddressDeltaEntry {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	var result []AddressDeltaEntry
	for _, addr := range addrs {
		deltas := mp.addressIndex[addr]
		entries := make([]AddressDeltaEntry, 0, len(deltas))
		for key, delta := range deltas {
			if end > 0 && (delta.Height < start || delta.Height > end) {
				continue
			}
			entries = append(entries, AddressDeltaEntry{Key: key, Delta: delta})
		}
		sort.Slice(entries, func(i, j int) bool {
			return compareDeltaKeys(&entries[i].Key, &entries[j].Key)
		})
		result = append(result, entries...)
	}
	return result
}

// SpentIndex returns the pool transaction spending the passed outpoint.
// Nothing is found unless the spent index is enabled.
//
// This function is safe for concurrent access.
func (mp *TxPool) SpentIndex(key SpentIndexKey) (SpentIndexValue, bool) {
	mp.mtx.Lock()
	value, ok := mp.spentIndex[key]
	mp.mtx.Unlock()

	return value, ok
}
