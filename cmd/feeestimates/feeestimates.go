// Copyright (c) 2018-2020 The Decred developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Tool feeestimates loads the fee estimates persisted by a node and prints
// the fee rate and priority suggested for every confirmation target.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/divi-project/divid/fees"
	"github.com/divi-project/divid/internal/log"
	"github.com/divi-project/divid/mempool"
)

// loadEstimates reads the persisted estimates in the passed file into a pool
// backed by a new estimator tracking maxConfirms bins.
func loadEstimates(r io.Reader, minRelayFee fees.FeeRate, maxConfirms int) (*mempool.TxPool, *fees.Estimator, error) {
	estimator := fees.NewEstimator(maxConfirms)
	pool := mempool.New(&mempool.Config{
		MinRelayTxFee: minRelayFee,
		FeeEstimator:  estimator,
	})
	if err := pool.ReadFeeEstimates(r); err != nil {
		return nil, nil, err
	}
	return pool, estimator, nil
}

// writeEstimates prints a line per confirmation target.
func writeEstimates(w io.Writer, pool *mempool.TxPool, maxConfirms int) {
	fmt.Fprintf(w, "%8s %20s %20s\n", "blocks", "fee rate", "priority")
	for n := 1; n <= maxConfirms; n++ {
		priority := pool.EstimatePriority(n)
		priorityStr := "-"
		if priority >= 0 {
			priorityStr = fmt.Sprintf("%.2f", priority)
		}
		rate := pool.EstimateFee(n)
		rateStr := "-"
		if rate > 0 {
			rateStr = rate.String()
		}
		fmt.Fprintf(w, "%8d %20s %20s\n", n, rateStr, priorityStr)
	}
}

func realMain() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(cfg.File)
	if err != nil {
		return err
	}
	defer f.Close()

	log.MainLog.Infof("Loading fee estimates from '%s'", cfg.File)
	pool, estimator, err := loadEstimates(f,
		fees.FeeRate(cfg.MinRelayTxFee), cfg.MaxConfirms)
	if err != nil {
		return err
	}
	log.MainLog.Infof("Loaded fee estimates at height %d",
		estimator.BestHeight())

	writeEstimates(os.Stdout, pool, cfg.MaxConfirms)
	if cfg.Dump {
		spew.Fdump(os.Stdout, estimator)
	}
	return nil
}

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
