// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

const (
	// p2pkhSpendSize is the serialized size of a pay-to-pubkey-hash output
	// (34 bytes) plus the size of the input needed to spend it later (148
	// bytes).  It is the basis of the dust threshold.
	p2pkhSpendSize = 182
)

// FeeRate is a fee rate expressed in satoshis per 1000 bytes.
type FeeRate int64

// NewFeeRate returns the fee rate of paying fee for a transaction of size
// bytes.
func NewFeeRate(fee btcutil.Amount, size int) FeeRate {
	if size <= 0 {
		return 0
	}
	return FeeRate(int64(fee) * 1000 / int64(size))
}

// Fee returns the fee for a transaction of size bytes at the rate.  A positive
// rate never yields a zero fee; the rate itself is charged instead.
func (r FeeRate) Fee(size int) btcutil.Amount {
	fee := btcutil.Amount(int64(r) * int64(size) / 1000)
	if fee == 0 && r > 0 {
		fee = btcutil.Amount(r)
	}
	return fee
}

// FeePerKB returns the fee charged for 1000 bytes.
func (r FeeRate) FeePerKB() btcutil.Amount {
	return btcutil.Amount(r)
}

// DustThreshold returns the value below which an output is not worth
// creating: three times the fee of spending a pay-to-pubkey-hash output.
func (r FeeRate) DustThreshold() btcutil.Amount {
	return 3 * r.Fee(p2pkhSpendSize)
}

// String returns the fee rate in DIVI per kilobyte with eight decimals.
func (r FeeRate) String() string {
	sign, sats := "", int64(r)
	if sats < 0 {
		sign, sats = "-", -sats
	}
	return fmt.Sprintf("%s%d.%08d DIVI/kB", sign,
		sats/btcutil.SatoshiPerBitcoin, sats%btcutil.SatoshiPerBitcoin)
}
