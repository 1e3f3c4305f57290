// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinselect

import (
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/divi-project/divid/fees"
	"github.com/pkg/errors"
)

const (
	// DefaultChangeSize is the serialized size of a pay-to-pubkey-hash
	// change output.
	DefaultChangeSize = 34

	// DefaultMaxTxSize is the largest transaction a selection may produce.
	DefaultMaxTxSize = 100000
)

var (
	// ErrNoSelection is returned when a CoinSelector cannot fund the target
	// from the candidates it was given.
	ErrNoSelection = errors.New("no coin selection possible")
)

// Candidate is a spendable output offered to a CoinSelector.
type Candidate struct {
	// OutPoint identifies the output.
	OutPoint wire.OutPoint

	// Value is the amount the output holds.
	Value btcutil.Amount

	// SigSize is the number of bytes spending the output adds to a
	// transaction.  See InputSigningSize.
	SigSize int
}

// Selection is a funding set picked by a CoinSelector.
type Selection struct {
	// Candidates are the selected outputs in the order they were picked.
	Candidates []Candidate

	// Fee is the relay fee of the funded transaction.
	Fee btcutil.Amount

	// Size is the estimated serialized size of the funded transaction
	// including a change output.
	Size int

	// Total is the value of the selected outputs.
	Total btcutil.Amount
}

// push adds a candidate to the selection and updates the cached totals.
func (s *Selection) push(c *Candidate) {
	s.Candidates = append(s.Candidates, *c)
	s.Total += c.Value
	s.Size += c.SigSize
}

// CoinSelector is an interface that wraps the SelectCoins method.
//
// SelectCoins attempts to select a subset of the candidates that funds
// target on top of a draft transaction of draftSize bytes.  The exact choice
// of candidates is implementation specific.
type CoinSelector interface {
	SelectCoins(draftSize int, target btcutil.Amount, candidates []Candidate) (*Selection, error)
}

// MinimumFeeSelector is a CoinSelector that funds a transaction with the
// candidates that add the most value net of their own signing cost, paying
// the relay fee of the final transaction size and leaving change of at least
// DustFloor.
//
// The selection is a pure function of its inputs, so a MinimumFeeSelector is
// safe for concurrent use.
type MinimumFeeSelector struct {
	// RelayFee is the fee rate the funded transaction pays.
	RelayFee fees.FeeRate

	// FeeFunc, when not nil, replaces RelayFee for computing the fee of a
	// transaction of the passed size.
	FeeFunc func(size int) btcutil.Amount

	// DustFloor is the smallest change the selection must leave.
	DustFloor btcutil.Amount

	// MaxFee is the largest fee a selection may pay.  Zero disables the
	// ceiling.
	MaxFee btcutil.Amount

	// MaxTxSize is the largest size a funded transaction may have.  Zero
	// selects DefaultMaxTxSize.
	MaxTxSize int

	// ChangeSize is the size of the change output.  Zero selects
	// DefaultChangeSize.
	ChangeSize int
}

// Ensure MinimumFeeSelector is a CoinSelector.
var _ CoinSelector = (*MinimumFeeSelector)(nil)

// failReason describes why a selection failed.  It is only logged.
type failReason string

const (
	failSizeLimit         failReason = "size limit exceeded"
	failInsufficientFunds failReason = "insufficient funds"
	failFeeCeiling        failReason = "fee ceiling exceeded"
)

// fee returns the fee of a transaction of the passed size.
func (s *MinimumFeeSelector) fee(size int) btcutil.Amount {
	if s.FeeFunc != nil {
		return s.FeeFunc(size)
	}
	return s.RelayFee.Fee(size)
}

// rankedCandidate is a candidate with its sort keys.
type rankedCandidate struct {
	*Candidate
	gap        btcutil.Amount
	sufficient bool
	index      int
}

// byPreference orders candidates that cover the whole amount on their own by
// ascending signing size first, then the others by descending gap and
// ascending signing size.  The original position breaks the remaining ties.
type byPreference []rankedCandidate

func (a byPreference) Len() int      { return len(a) }
func (a byPreference) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a byPreference) Less(i, j int) bool {
	x, y := &a[i], &a[j]
	if x.sufficient != y.sufficient {
		return x.sufficient
	}
	if !x.sufficient && x.gap != y.gap {
		return x.gap > y.gap
	}
	if x.SigSize != y.SigSize {
		return x.SigSize < y.SigSize
	}
	return x.index < y.index
}

// SelectCoins picks candidates until their value covers target, the dust
// floor and the relay fee of the transaction they produce.  The fee is
// recomputed after every candidate since each one grows the transaction.  It
// returns ErrNoSelection when the transaction would grow beyond the maximum
// size, when its fee would exceed the ceiling, or when the candidates run out.
func (s *MinimumFeeSelector) SelectCoins(draftSize int, target btcutil.Amount, candidates []Candidate) (*Selection, error) {
	maxTxSize := s.MaxTxSize
	if maxTxSize <= 0 {
		maxTxSize = DefaultMaxTxSize
	}
	changeSize := s.ChangeSize
	if changeSize <= 0 {
		changeSize = DefaultChangeSize
	}

	sel := &Selection{Size: draftSize + changeSize}
	needed := target + s.DustFloor + s.fee(sel.Size)

	ranked := make([]rankedCandidate, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		gap := c.Value - s.fee(c.SigSize)
		ranked[i] = rankedCandidate{
			Candidate:  c,
			gap:        gap,
			sufficient: gap >= needed,
			index:      i,
		}
	}
	sort.Sort(byPreference(ranked))

	reason := failInsufficientFunds
	for i := range ranked {
		sel.push(ranked[i].Candidate)
		if sel.Size > maxTxSize {
			reason = failSizeLimit
			break
		}

		sel.Fee = s.fee(sel.Size)
		if sel.Total < target+s.DustFloor+sel.Fee {
			continue
		}
		if s.MaxFee > 0 && sel.Fee > s.MaxFee {
			reason = failFeeCeiling
			break
		}

		log.Debugf("Selected %d of %d %s worth %v for %v (size %d, fee %v)",
			len(sel.Candidates), len(candidates), pickNoun(len(candidates),
				"candidate", "candidates"), sel.Total, target, sel.Size,
			sel.Fee)
		return sel, nil
	}

	log.Debugf("Unable to fund %v from %d %s: %s", target, len(candidates),
		pickNoun(len(candidates), "candidate", "candidates"), reason)
	return nil, ErrNoSelection
}

// NewMsgTxWithInputs returns a copy of the draft transaction with an input
// added for every selected candidate.
func NewMsgTxWithInputs(draft *wire.MsgTx, sel *Selection) *wire.MsgTx {
	msgTx := draft.Copy()
	for i := range sel.Candidates {
		msgTx.AddTxIn(wire.NewTxIn(&sel.Candidates[i].OutPoint, nil, nil))
	}
	return msgTx
}
