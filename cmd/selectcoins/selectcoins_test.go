// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/divi-project/divid/coins"
	"github.com/divi-project/divid/coinselect"
	"github.com/stretchr/testify/require"
)

func TestParseOutPoint(t *testing.T) {
	hash := chainhash.Hash{0x01, 0x02}
	prevOut, err := parseOutPoint(fmt.Sprintf("%v:7", hash))
	require.NoError(t, err)
	require.Equal(t, wire.OutPoint{Hash: hash, Index: 7}, *prevOut)

	for _, s := range []string{"", "abc", hash.String(), hash.String() + ":x",
		"zz:1", hash.String() + ":1:2", hash.String() + ":4294967296"} {

		_, err := parseOutPoint(s)
		require.Error(t, err, s)
	}
}

func TestParseCandidate(t *testing.T) {
	c, err := parseCandidate("150000:181", 3)
	require.NoError(t, err)
	require.Equal(t, btcutil.Amount(150000), c.Value)
	require.Equal(t, 181, c.SigSize)
	require.Equal(t, uint32(3), c.OutPoint.Index)

	for _, s := range []string{"", "1", "x:1", "1:x", "0:100", "100:0", "1:2:3"} {
		_, err := parseCandidate(s, 0)
		require.Error(t, err, s)
	}
}

func TestFetchCandidates(t *testing.T) {
	p2pkh, err := txscript.NewScriptBuilder().AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).AddData(make([]byte, 20)).
		AddOp(txscript.OP_EQUALVERIFY).AddOp(txscript.OP_CHECKSIG).Script()
	require.NoError(t, err)

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: chainhash.Hash{0x09}}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(100000, p2pkh))
	tx.AddTxOut(wire.NewTxOut(200000, []byte{txscript.OP_TRUE}))
	txHash := tx.TxHash()

	view := coins.NewViewCache(nil)
	view.AddCoins(&txHash, coins.NewCoins(tx, 10))

	candidates, err := fetchCandidates(view, []string{
		fmt.Sprintf("%v:0", txHash),
		fmt.Sprintf("%v:1", txHash),
		fmt.Sprintf("%v:2", txHash),
		fmt.Sprintf("%v:0", chainhash.Hash{0x42}),
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	sigSize, err := coinselect.InputSigningSize(p2pkh)
	require.NoError(t, err)
	require.Equal(t, coinselect.Candidate{
		OutPoint: wire.OutPoint{Hash: txHash},
		Value:    100000,
		SigSize:  sigSize,
	}, candidates[0])

	_, err = fetchCandidates(view, []string{"bogus"})
	require.Error(t, err)
}

func TestWriteSelection(t *testing.T) {
	sel := &coinselect.Selection{
		Candidates: []coinselect.Candidate{{Value: 5000, SigSize: 181}},
		Fee:        225,
		Size:       225,
		Total:      5000,
	}
	var buf bytes.Buffer
	writeSelection(&buf, sel)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, fmt.Sprintf("%v 5000 181", wire.OutPoint{}), lines[0])
	require.Equal(t, "total 5000 fee 225 size 225", lines[1])
}
