// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/divi-project/divid/coins"
	"github.com/divi-project/divid/fees"
)

// FeeEstimator learns from the pool entries that get mined and suggests fee
// rates and priorities.  It is implemented by *fees.Estimator.
type FeeEstimator interface {
	// SeenBlock records the pool entries confirmed by the block at the
	// passed height.
	SeenBlock(entries []fees.ConfirmedTx, height int32, minRelayFee fees.FeeRate)

	// EstimateFee returns the fee rate needed to be mined within numBlocks
	// blocks, or zero when unknown.
	EstimateFee(numBlocks int) fees.FeeRate

	// EstimatePriority returns the priority needed to be mined within
	// numBlocks blocks without a fee, or -1 when unknown.
	EstimatePriority(numBlocks int) float64

	fees.StateReadWriter
}

// Ensure the fees estimator satisfies the FeeEstimator interface.
var _ FeeEstimator = (*fees.Estimator)(nil)

// InputsVerifier performs the script and value validation of a transaction
// against a view during a sanity check of the pool.  The pool itself never
// validates scripts.
type InputsVerifier interface {
	CheckInputs(tx *btcutil.Tx, view *coins.ViewCache) error
}
