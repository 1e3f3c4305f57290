// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrUnsupportedVersion indicates a fee estimates file that requires a
	// newer version of the software to read.
	ErrUnsupportedVersion ErrorCode = iota

	// ErrCorruptEstimates indicates a fee estimates file that could not be
	// decoded or holds out of range values.
	ErrCorruptEstimates

	// ErrNoEstimator indicates an attempt to persist estimates without an
	// estimator to persist.
	ErrNoEstimator

	// numErrorCodes is the maximum error code number used in tests.
	numErrorCodes
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrUnsupportedVersion: "ErrUnsupportedVersion",
	ErrCorruptEstimates:   "ErrCorruptEstimates",
	ErrNoEstimator:        "ErrNoEstimator",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error identifies a fee estimation error.  The caller can use type assertions
// or errors.As to access the ErrorCode field and fall back to the static
// minimum relay fee.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// feesError creates an Error given a set of arguments.
func feesError(c ErrorCode, desc string) Error {
	return Error{ErrorCode: c, Description: desc}
}

// IsErrorCode returns whether err is an Error with the passed code.
func IsErrorCode(err error, c ErrorCode) bool {
	var e Error
	return errors.As(err, &e) && e.ErrorCode == c
}
