// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
)

// AssertError identifies an error that indicates an internal code consistency
// issue and should be treated as a critical and unrecoverable error.  The pool
// panics with an AssertError when a sanity check fails.
type AssertError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// assert panics with an AssertError built from the format and arguments when
// the condition does not hold.
func assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(AssertError(fmt.Sprintf(format, args...)))
	}
}
