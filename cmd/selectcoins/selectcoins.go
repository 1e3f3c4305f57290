// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Tool selectcoins runs the minimum fee coin selector against outputs of a
// coin database or candidates given on the command line and prints the
// outputs it picks.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/divi-project/divid/coins"
	"github.com/divi-project/divid/coinselect"
	"github.com/divi-project/divid/fees"
	"github.com/divi-project/divid/internal/log"
	"github.com/pkg/errors"
)

// parseOutPoint parses an outpoint given as <txid>:<index>.
func parseOutPoint(s string) (*wire.OutPoint, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return nil, errors.Errorf("malformed outpoint %q", s)
	}
	hash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return nil, errors.Wrapf(err, "malformed outpoint %q", s)
	}
	index, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed outpoint %q", s)
	}
	return wire.NewOutPoint(hash, uint32(index)), nil
}

// parseCandidate parses a candidate given as <value>:<signing size>.  The
// candidates are numbered by the position they were given in.
func parseCandidate(s string, position uint32) (coinselect.Candidate, error) {
	var c coinselect.Candidate
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return c, errors.Errorf("malformed candidate %q", s)
	}
	value, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || value <= 0 {
		return c, errors.Errorf("malformed candidate value %q", parts[0])
	}
	sigSize, err := strconv.Atoi(parts[1])
	if err != nil || sigSize <= 0 {
		return c, errors.Errorf("malformed candidate signing size %q",
			parts[1])
	}
	c.OutPoint.Index = position
	c.Value = btcutil.Amount(value)
	c.SigSize = sigSize
	return c, nil
}

// fetchCandidates looks up the passed outpoints in the view.  Outputs that
// are spent or whose signing size cannot be estimated are skipped.
func fetchCandidates(view coins.View, outPoints []string) ([]coinselect.Candidate, error) {
	candidates := make([]coinselect.Candidate, 0, len(outPoints))
	for _, s := range outPoints {
		prevOut, err := parseOutPoint(s)
		if err != nil {
			return nil, err
		}
		txOut, err := coins.OutputFor(view, prevOut)
		if err != nil {
			return nil, err
		}
		if txOut == nil {
			log.MainLog.Warnf("Skipping %v: output is not available",
				prevOut)
			continue
		}
		sigSize, err := coinselect.InputSigningSize(txOut.PkScript)
		if err != nil {
			log.MainLog.Warnf("Skipping %v: %v", prevOut, err)
			continue
		}
		candidates = append(candidates, coinselect.Candidate{
			OutPoint: *prevOut,
			Value:    btcutil.Amount(txOut.Value),
			SigSize:  sigSize,
		})
	}
	return candidates, nil
}

// writeSelection prints the selected candidates and the totals.  Amounts are
// in satoshi.
func writeSelection(w io.Writer, sel *coinselect.Selection) {
	for _, c := range sel.Candidates {
		fmt.Fprintf(w, "%v %d %d\n", c.OutPoint, int64(c.Value), c.SigSize)
	}
	fmt.Fprintf(w, "total %d fee %d size %d\n", int64(sel.Total),
		int64(sel.Fee), sel.Size)
}

func realMain() error {
	cfg, args, err := loadConfig()
	if err != nil {
		return err
	}

	var candidates []coinselect.Candidate
	for i, s := range cfg.Candidates {
		c, err := parseCandidate(s, uint32(i))
		if err != nil {
			return err
		}
		candidates = append(candidates, c)
	}

	if len(args) > 0 {
		dbPath := filepath.Join(cfg.DataDir, coinsDbName+"_"+cfg.Backend)
		log.MainLog.Infof("Loading coin database from '%s'", dbPath)
		store, err := coins.OpenStore(&coins.StoreConfig{
			Backend: cfg.Backend,
			Path:    dbPath,
		})
		if err != nil {
			return err
		}
		defer store.Close()

		fetched, err := fetchCandidates(store, args)
		if err != nil {
			return err
		}
		candidates = append(candidates, fetched...)
	}

	target, err := btcutil.NewAmount(cfg.Target)
	if err != nil {
		return err
	}
	maxFee, err := btcutil.NewAmount(cfg.MaxFee)
	if err != nil {
		return err
	}
	relayFee := fees.FeeRate(cfg.RelayFee)
	selector := coinselect.MinimumFeeSelector{
		RelayFee:  relayFee,
		DustFloor: relayFee.DustThreshold(),
		MaxFee:    maxFee,
		MaxTxSize: cfg.MaxTxSize,
	}
	sel, err := selector.SelectCoins(cfg.DraftSize, target, candidates)
	if err != nil {
		return err
	}

	writeSelection(os.Stdout, sel)
	return nil
}

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
