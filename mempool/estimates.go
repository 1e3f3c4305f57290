// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"io"

	"github.com/divi-project/divid/fees"
)

// EstimateFee returns the fee rate needed for a transaction to be mined
// within numBlocks blocks.  The minimum relay fee is returned when the pool
// has no fee estimator.
//
// This function is safe for concurrent access.
func (mp *TxPool) EstimateFee(numBlocks int) fees.FeeRate {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	if mp.cfg.FeeEstimator == nil {
		return mp.cfg.MinRelayTxFee
	}
	return mp.cfg.FeeEstimator.EstimateFee(numBlocks)
}

// EstimatePriority returns the priority needed for a transaction to be mined
// within numBlocks blocks without paying a fee.  Zero is returned when the
// pool has no fee estimator.
//
// This function is safe for concurrent access.
func (mp *TxPool) EstimatePriority(numBlocks int) float64 {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	if mp.cfg.FeeEstimator == nil {
		return 0
	}
	return mp.cfg.FeeEstimator.EstimatePriority(numBlocks)
}

// WriteFeeEstimates writes the state of the fee estimator behind a version
// header.  Failures are not fatal to the pool, which keeps answering with the
// minimum relay fee, so they are only logged and returned.
//
// This function is safe for concurrent access.
func (mp *TxPool) WriteFeeEstimates(w io.Writer) error {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	err := fees.WriteEstimates(w, mp.cfg.FeeEstimator)
	if err != nil {
		log.Warnf("Unable to write fee estimates (non-fatal): %v", err)
	}
	return err
}

// ReadFeeEstimates replaces the state of the fee estimator with the state
// written by WriteFeeEstimates.  Files that require a newer version are
// rejected with fees.ErrUnsupportedVersion.  Failures are logged and returned
// and leave the estimator untouched.
//
// This function is safe for concurrent access.
func (mp *TxPool) ReadFeeEstimates(r io.Reader) error {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	err := fees.ReadEstimates(r, mp.cfg.FeeEstimator, mp.cfg.MinRelayTxFee)
	if err != nil {
		log.Warnf("Unable to read fee estimates (non-fatal): %v", err)
	}
	return err
}
