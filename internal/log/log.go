// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2017 The Decred developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/divi-project/divid/coins"
	"github.com/divi-project/divid/coinselect"
	"github.com/divi-project/divid/fees"
	"github.com/divi-project/divid/mempool"
	"github.com/jrick/logrotate/rotator"
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if LogRotator != nil {
		LogRotator.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem.  A single backend logger is created and all subsystem
// loggers created from it will write to the backend.  When adding new
// subsystems, add the subsystem logger variable here and to the
// subsystemLoggers map.
//
// Output only goes to standard output until InitLogRotator is called with a
// log file.
var (
	// backendLog is the logging backend used to create all subsystem loggers.
	backendLog = btclog.NewBackend(logWriter{})

	// LogRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	LogRotator *rotator.Rotator

	cndbLog = backendLog.Logger("CNDB")
	cselLog = backendLog.Logger("CSEL")
	feesLog = backendLog.Logger("FEES")
	MainLog = backendLog.Logger("MAIN")
	TxmpLog = backendLog.Logger("TXMP")
)

// Initialize package-global logger variables.
func init() {
	coins.UseLogger(cndbLog)
	coinselect.UseLogger(cselLog)
	fees.UseLogger(feesLog)
	mempool.UseLogger(TxmpLog)
}

// SubsystemLoggers maps each subsystem identifier to its associated logger.
var SubsystemLoggers = map[string]btclog.Logger{
	"CNDB": cndbLog,
	"CSEL": cselLog,
	"FEES": feesLog,
	"MAIN": MainLog,
	"TXMP": TxmpLog,
}

// InitLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory.  It must be called before the
// package-global log rotater variables are used.
func InitLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		return fmt.Errorf("failed to create log directory: %v", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %v", err)
	}

	LogRotator = r
	return nil
}

// SetLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func SetLogLevel(subsystemID string, logLevel string) {
	// Ignore invalid subsystems.
	logger, ok := SubsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// SetLogLevels sets the log level for all subsystem loggers to the passed
// level.
func SetLogLevels(logLevel string) {
	// Configure all sub-systems with the new logging level.
	for subsystemID := range SubsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// SupportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func SupportedSubsystems() []string {
	// Convert the subsystemLoggers map keys to a slice.
	subsystems := make([]string, 0, len(SubsystemLoggers))
	for subsysID := range SubsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsystems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}

// ParseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.  The level is either a single level applied to every subsystem or
// a comma separated list of subsystem=level pairs.
func ParseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		SetLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := SubsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, SupportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		SetLogLevel(subsysID, logLevel)
	}

	return nil
}
