// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package mempool provides a pool of unmined transactions.

The pool holds transactions that were already validated against the current
chain tip and keeps the lookup structures derived from them consistent as
transactions arrive and leave:

  - The transactions by hash and by bare hash, which is the hash of the
    transaction without its signature scripts
  - The pool transaction spending each outpoint
  - Optionally the pending balance changes per address and the pool
    transaction spending each output along with the output details
  - Manual fee and priority adjustments, which outlive pool membership

Validation is the responsibility of the caller.  AddUnchecked inserts
whatever it is given and the pool never knowingly holds two transactions
spending the same output only because callers do not add them.

# Removal

Transactions leave the pool through Remove, RemoveConflicts,
RemoveConfirmedTransactions when a block is connected, RemoveCoinbaseSpends
when the chain height moves back below the maturity of spent coinbase or
coinstake outputs, and Clear.  Recursive removal is breadth first so parents
are always reported before their descendants.

# Fee Estimation

A pool may carry a FeeEstimator, which is told about the pool entries every
connected block confirms before they are removed.  Estimates and their
persistence go through the pool so the estimator state is only touched under
the pool lock.

# Views

CoinsView layers the outputs of the pool transactions on top of a coins.View
of the chain.  Pool outputs are reported at coins.MempoolHeight.

# Sanity Checking

With SanityCheck enabled, Check replays every pool transaction against a
scratch copy of the chain view and panics with an AssertError on the first
inconsistency.  It is expensive and meant for testing.

# Errors

Failures to read or write fee estimates are reported with the fees.Error
type.  Consistency violations found by Check are programming errors and
panic.
*/
package mempool
