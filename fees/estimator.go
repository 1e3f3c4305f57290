// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"encoding/binary"
	"io"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/pkg/errors"
)

const (
	// DefaultMaxConfirms is the number of blocks-to-confirm bins tracked by
	// default.  The last bin collects every transaction that took at least
	// that many blocks.
	DefaultMaxConfirms = 25

	// binSize is the number of fee and priority samples kept per bin.
	binSize = 100

	// maxSamplesPerBlock is the number of transactions from one block that
	// may be sampled into a single bin so a single block cannot dominate an
	// estimate.
	maxSamplesPerBlock = 10

	// minEstimateSamples is the number of samples required before an estimate
	// is given.  With at most maxSamplesPerBlock samples per block it implies
	// samples from at least two blocks.
	minEstimateSamples = 11

	// maxPersistedBins bounds the number of bins accepted from a persisted
	// file.
	maxPersistedBins = 10000

	// maxSaneFeeMultiplier bounds sampled fee rates to this multiple of the
	// minimum relay fee.
	maxSaneFeeMultiplier = 10000
)

// AllowFreeThreshold is the priority above which a transaction is considered
// to have been mined because of its priority rather than its fee: one coin
// one day old in a 250 byte transaction.
const AllowFreeThreshold = float64(btcutil.SatoshiPerBitcoin) * 144 / 250

// AllowFree returns whether the passed priority is high enough for a
// transaction to be relayed and mined without a fee.
func AllowFree(priority float64) bool {
	return priority > AllowFreeThreshold
}

// ConfirmedTx describes a pool entry that was included in a block, as seen
// by the estimator.
type ConfirmedTx struct {
	// Fee is the fee paid by the transaction.
	Fee btcutil.Amount

	// Size is the serialized size of the transaction.
	Size int

	// Height is the chain height when the transaction entered the pool.
	Height int32

	// Priority is the priority of the transaction when it entered the pool.
	Priority float64
}

// blockAverage holds the samples of transactions that confirmed after the
// same number of blocks.  The oldest sample is evicted first.
type blockAverage struct {
	fees       []FeeRate
	priorities []float64
}

func (b *blockAverage) recordFee(rate FeeRate) {
	b.fees = append(b.fees, rate)
	if len(b.fees) > binSize {
		b.fees = b.fees[1:]
	}
}

func (b *blockAverage) recordPriority(priority float64) {
	b.priorities = append(b.priorities, priority)
	if len(b.priorities) > binSize {
		b.priorities = b.priorities[1:]
	}
}

// saneFee returns whether a fee rate is plausible given the minimum relay
// fee.
func saneFee(rate, minRelayFee FeeRate) bool {
	return rate >= 0 && int64(rate) <= int64(minRelayFee)*maxSaneFeeMultiplier
}

// sanePriority returns whether a priority is plausible.
func sanePriority(priority float64) bool {
	return priority >= 0 && !math.IsNaN(priority) && !math.IsInf(priority, 0)
}

// Estimator learns how fee rates and priorities relate to the number of
// blocks transactions waited before being mined and suggests a fee rate or
// priority for a target confirmation delay.
//
// It is safe for concurrent access.
type Estimator struct {
	mtx        sync.Mutex
	bestHeight int32
	bins       []*blockAverage
	rand       *rand.Rand

	// sortedFees and sortedPriorities hold every sample in descending order.
	// They are rebuilt lazily after new samples arrive.
	sortedFees       []FeeRate
	sortedPriorities []float64
}

// NewEstimator returns an estimator tracking maxConfirms bins.  A value of
// zero or less selects DefaultMaxConfirms.
func NewEstimator(maxConfirms int) *Estimator {
	if maxConfirms <= 0 {
		maxConfirms = DefaultMaxConfirms
	}
	bins := make([]*blockAverage, maxConfirms)
	for i := range bins {
		bins[i] = &blockAverage{}
	}
	return &Estimator{
		bins: bins,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// BestHeight returns the height of the last block the estimator saw.
func (e *Estimator) BestHeight() int32 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.bestHeight
}

// SeenBlock records the pool entries that were mined in the block at the
// passed height.  Blocks at or below the best height seen so far are ignored
// so reorganizations do not count the same transactions twice.
func (e *Estimator) SeenBlock(entries []ConfirmedTx, height int32, minRelayFee FeeRate) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	if height <= e.bestHeight {
		return
	}
	e.bestHeight = height

	byConfirms := make([][]ConfirmedTx, len(e.bins))
	for _, entry := range entries {
		delta := int(height - entry.Height)
		if delta <= 0 {
			continue
		}
		if delta > len(e.bins) {
			delta = len(e.bins)
		}
		byConfirms[delta-1] = append(byConfirms[delta-1], entry)
	}

	for i, confirmed := range byConfirms {
		if len(confirmed) > maxSamplesPerBlock {
			e.rand.Shuffle(len(confirmed), func(a, b int) {
				confirmed[a], confirmed[b] = confirmed[b], confirmed[a]
			})
			confirmed = confirmed[:maxSamplesPerBlock]
		}
		for _, entry := range confirmed {
			e.seenTxConfirm(NewFeeRate(entry.Fee, entry.Size), minRelayFee,
				entry.Priority, i)
		}
	}

	e.sortedFees = nil
	e.sortedPriorities = nil

	for i, bin := range e.bins {
		if len(bin.fees)+len(bin.priorities) == 0 {
			continue
		}
		log.Debugf("Estimates for confirming within %d blocks based on "+
			"%d/%d samples: fee=%v, priority=%g", i+1, len(bin.fees),
			len(bin.priorities), e.estimateFee(i+1), e.estimatePriority(i+1))
	}
}

// seenTxConfirm assigns a confirmed transaction to the fee or priority
// samples of a bin depending on which of the two most likely got it mined.
//
// This function MUST be called with the estimator lock held.
func (e *Estimator) seenTxConfirm(rate, minRelayFee FeeRate, priority float64, bin int) {
	sufficientFee := rate > minRelayFee
	sufficientPriority := AllowFree(priority)

	switch {
	case sufficientFee && !sufficientPriority && saneFee(rate, minRelayFee):
		e.bins[bin].recordFee(rate)

	case sufficientPriority && !sufficientFee && sanePriority(priority):
		e.bins[bin].recordPriority(priority)

	default:
		// The reason the transaction was mined is ambiguous.
	}
}

// EstimateFee returns the fee rate needed for a transaction to be mined
// within numBlocks blocks, or zero when there is not enough data.
func (e *Estimator) EstimateFee(numBlocks int) FeeRate {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.estimateFee(numBlocks)
}

// estimateFee uses every sample and picks the n-th highest fee rate where n
// is the number of samples that confirmed faster plus half of the samples of
// the requested bin.  This keeps estimates from rising as the number of
// blocks grows.
//
// This function MUST be called with the estimator lock held.
func (e *Estimator) estimateFee(numBlocks int) FeeRate {
	bin := numBlocks - 1
	if bin < 0 || bin >= len(e.bins) {
		return 0
	}
	if e.sortedFees == nil {
		e.sortedFees = make([]FeeRate, 0, len(e.bins)*binSize)
		for _, b := range e.bins {
			e.sortedFees = append(e.sortedFees, b.fees...)
		}
		sort.Slice(e.sortedFees, func(i, j int) bool {
			return e.sortedFees[i] > e.sortedFees[j]
		})
	}
	if len(e.sortedFees) < minEstimateSamples {
		return 0
	}

	var prevSize int
	for i := 0; i < bin; i++ {
		prevSize += len(e.bins[i].fees)
	}
	index := prevSize + len(e.bins[bin].fees)/2
	if index > len(e.sortedFees)-1 {
		index = len(e.sortedFees) - 1
	}
	return e.sortedFees[index]
}

// EstimatePriority returns the priority needed for a transaction to be mined
// within numBlocks blocks without a fee, or -1 when there is not enough data.
func (e *Estimator) EstimatePriority(numBlocks int) float64 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.estimatePriority(numBlocks)
}

// estimatePriority is the priority counterpart of estimateFee.
//
// This function MUST be called with the estimator lock held.
func (e *Estimator) estimatePriority(numBlocks int) float64 {
	bin := numBlocks - 1
	if bin < 0 || bin >= len(e.bins) {
		return -1
	}
	if e.sortedPriorities == nil {
		e.sortedPriorities = make([]float64, 0, len(e.bins)*binSize)
		for _, b := range e.bins {
			e.sortedPriorities = append(e.sortedPriorities, b.priorities...)
		}
		sort.Slice(e.sortedPriorities, func(i, j int) bool {
			return e.sortedPriorities[i] > e.sortedPriorities[j]
		})
	}
	if len(e.sortedPriorities) < minEstimateSamples {
		return -1
	}

	var prevSize int
	for i := 0; i < bin; i++ {
		prevSize += len(e.bins[i].priorities)
	}
	index := prevSize + len(e.bins[bin].priorities)/2
	if index > len(e.sortedPriorities)-1 {
		index = len(e.sortedPriorities) - 1
	}
	return e.sortedPriorities[index]
}

// Write serializes the estimator state as:
//
//	[int32 best height][uint32 number of bins]
//	per bin: [uint32 n][n x int64 fee rate][uint32 m][m x float64 priority]
//
// All integers are little endian.
func (e *Estimator) Write(w io.Writer) error {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	write := func(data interface{}) error {
		return binary.Write(w, binary.LittleEndian, data)
	}
	if err := write(e.bestHeight); err != nil {
		return errors.Wrap(err, "failed to write best height")
	}
	if err := write(uint32(len(e.bins))); err != nil {
		return errors.Wrap(err, "failed to write bin count")
	}
	for _, bin := range e.bins {
		if err := write(uint32(len(bin.fees))); err != nil {
			return errors.Wrap(err, "failed to write fee samples")
		}
		for _, rate := range bin.fees {
			if err := write(int64(rate)); err != nil {
				return errors.Wrap(err, "failed to write fee samples")
			}
		}
		if err := write(uint32(len(bin.priorities))); err != nil {
			return errors.Wrap(err, "failed to write priority samples")
		}
		for _, priority := range bin.priorities {
			if err := write(math.Float64bits(priority)); err != nil {
				return errors.Wrap(err, "failed to write priority samples")
			}
		}
	}
	return nil
}

// Read replaces the estimator state with the state serialized by Write.
// Samples that are implausible given minRelayFee are dropped.  The state is
// left untouched when an error is returned, and every decoding failure is
// reported as an Error with the ErrCorruptEstimates code.
func (e *Estimator) Read(r io.Reader, minRelayFee FeeRate) error {
	read := func(data interface{}) error {
		return binary.Read(r, binary.LittleEndian, data)
	}
	corrupt := func(err error, what string) error {
		return feesError(ErrCorruptEstimates, errors.Wrap(err, what).Error())
	}

	var bestHeight int32
	if err := read(&bestHeight); err != nil {
		return corrupt(err, "failed to read best height")
	}
	var numBins uint32
	if err := read(&numBins); err != nil {
		return corrupt(err, "failed to read bin count")
	}
	if numBins == 0 || numBins > maxPersistedBins {
		str := "corrupt estimates: bin count must be between 1 and 10000"
		return feesError(ErrCorruptEstimates, str)
	}

	bins := make([]*blockAverage, 0, numBins)
	for i := uint32(0); i < numBins; i++ {
		bin := &blockAverage{}

		var numFees uint32
		if err := read(&numFees); err != nil {
			return corrupt(err, "failed to read fee samples")
		}
		if numFees > binSize {
			str := "corrupt estimates: too many fee samples"
			return feesError(ErrCorruptEstimates, str)
		}
		for j := uint32(0); j < numFees; j++ {
			var rate int64
			if err := read(&rate); err != nil {
				return corrupt(err, "failed to read fee samples")
			}
			if FeeRate(rate) >= minRelayFee && saneFee(FeeRate(rate), minRelayFee) {
				bin.fees = append(bin.fees, FeeRate(rate))
			}
		}

		var numPriorities uint32
		if err := read(&numPriorities); err != nil {
			return corrupt(err, "failed to read priority samples")
		}
		if numPriorities > binSize {
			str := "corrupt estimates: too many priority samples"
			return feesError(ErrCorruptEstimates, str)
		}
		for j := uint32(0); j < numPriorities; j++ {
			var bits uint64
			if err := read(&bits); err != nil {
				return corrupt(err, "failed to read priority samples")
			}
			priority := math.Float64frombits(bits)
			if sanePriority(priority) {
				bin.priorities = append(bin.priorities, priority)
			}
		}

		bins = append(bins, bin)
	}

	e.mtx.Lock()
	e.bestHeight = bestHeight
	e.bins = bins
	e.sortedFees = nil
	e.sortedPriorities = nil
	e.mtx.Unlock()

	log.Infof("Loaded fee estimates for %d bins at height %d", numBins,
		bestHeight)
	return nil
}
