// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/divi-project/divid/fees"
	"github.com/divi-project/divid/internal/log"
	"github.com/divi-project/divid/internal/version"
	"github.com/divi-project/divid/mempool"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultEstimatesFile = "fee_estimates.dat"
	defaultDebugLevel    = "info"
	maxMaxConfirms       = 10000
)

var (
	dividHomeDir    = btcutil.AppDataDir("divid", false)
	defaultFilePath = filepath.Join(dividHomeDir, defaultEstimatesFile)
)

// config defines the configuration options for feeestimates.
//
// See loadConfig for details on the configuration load process.
type config struct {
	File          string `short:"f" long:"file" description:"Path to the persisted fee estimates"`
	MinRelayTxFee int64  `long:"minrelaytxfee" description:"The minimum fee rate in satoshi/kB below which fee samples are dropped on load"`
	MaxConfirms   int    `short:"n" long:"maxconfirms" description:"Largest confirmation target to print estimates for"`
	Dump          bool   `long:"dump" description:"Dump the raw estimator state after the estimates"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
}

// loadConfig initializes and parses the config using command line options.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		File:          defaultFilePath,
		MinRelayTxFee: int64(mempool.DefaultMinRelayTxFee),
		MaxConfirms:   fees.DefaultMaxConfirms,
		DebugLevel:    defaultDebugLevel,
	}

	// Parse command line options.
	parser := flags.NewParser(&cfg, flags.Default)
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	if cfg.ShowVersion {
		fmt.Printf("%s version %s\n", filepath.Base(os.Args[0]),
			version.String())
		os.Exit(0)
	}

	// Parse, validate, and set debug log level(s).
	if err := log.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", "loadConfig", err)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Validate the confirmation target range.
	if cfg.MaxConfirms < 1 || cfg.MaxConfirms > maxMaxConfirms {
		str := "%s: the specified number of confirmations is out of " +
			"range -- parsed [%v]"
		err := fmt.Errorf(str, "loadConfig", cfg.MaxConfirms)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	if cfg.MinRelayTxFee < 0 {
		str := "%s: the minimum relay fee may not be negative -- " +
			"parsed [%v]"
		err := fmt.Errorf(str, "loadConfig", cfg.MinRelayTxFee)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	return &cfg, remainingArgs, nil
}
