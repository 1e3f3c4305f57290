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
	"github.com/divi-project/divid/coins"
	"github.com/divi-project/divid/coinselect"
	"github.com/divi-project/divid/internal/log"
	"github.com/divi-project/divid/internal/version"
	"github.com/divi-project/divid/mempool"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultBackend    = coins.BackendLevelDB
	defaultDebugLevel = "info"
	coinsDbName       = "coins"
)

var (
	dividHomeDir   = btcutil.AppDataDir("divid", false)
	defaultDataDir = filepath.Join(dividHomeDir, "data")
	knownBackends  = []string{coins.BackendLevelDB, coins.BackendPebble}
)

// config defines the configuration options for selectcoins.
//
// See loadConfig for details on the configuration load process.
type config struct {
	DataDir     string   `short:"b" long:"datadir" description:"Location of the divid data directory"`
	Backend     string   `long:"backend" description:"Storage engine of the coin database {leveldb, pebble}"`
	Target      float64  `short:"t" long:"target" description:"Amount in DIVI the transaction must raise" required:"true"`
	DraftSize   int      `long:"draftsize" description:"Serialized size of the draft transaction without inputs"`
	RelayFee    int64    `long:"relayfee" description:"Fee rate in satoshi/kB the transaction pays"`
	MaxFee      float64  `long:"maxfee" description:"Largest fee in DIVI the transaction may pay (0 for no limit)"`
	MaxTxSize   int      `long:"maxtxsize" description:"Largest serialized size of the funded transaction"`
	Candidates  []string `short:"c" long:"candidate" description:"Candidate given as <value in satoshi>:<signing size> instead of an outpoint in the coin database (may be repeated)"`
	DebugLevel  string   `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	ShowVersion bool     `short:"V" long:"version" description:"Display version information and exit"`
}

// validBackend returns whether or not backend is a supported coin database
// backend.
func validBackend(backend string) bool {
	for _, knownBackend := range knownBackends {
		if backend == knownBackend {
			return true
		}
	}

	return false
}

// loadConfig initializes and parses the config using command line options.
// The remaining arguments are outpoints of the coin database to use as
// candidates.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		DataDir:    defaultDataDir,
		Backend:    defaultBackend,
		DraftSize:  10,
		RelayFee:   int64(mempool.DefaultMinRelayTxFee),
		MaxTxSize:  coinselect.DefaultMaxTxSize,
		DebugLevel: defaultDebugLevel,
	}

	// Parse command line options.
	parser := flags.NewParser(&cfg, flags.Default)
	parser.Usage = "[OPTIONS] [txid:index...]"
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

	// Validate database backend.
	if !validBackend(cfg.Backend) {
		str := "%s: the specified database backend [%v] is invalid -- " +
			"supported backends %v"
		err := fmt.Errorf(str, "loadConfig", cfg.Backend, knownBackends)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	if len(remainingArgs) == 0 && len(cfg.Candidates) == 0 {
		str := "%s: no candidates specified"
		err := fmt.Errorf(str, "loadConfig")
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	return &cfg, remainingArgs, nil
}
