// Copyright (c) 2018-2020 The Decred developers
// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package fees provides fee rates and a fee estimator for transactions waiting
in the memory pool.

Fee rates are expressed in satoshis per 1000 bytes.  A positive rate never
charges a zero fee, and outputs worth less than three times the fee of
spending them are considered dust.

Estimation

The Estimator is told about every block that confirms transactions from the
pool together with the height each transaction entered the pool at.  Each
confirmed transaction is placed in a bin according to how many blocks it
waited and is then classified:

- A fee rate above the minimum relay fee with a priority too low to be mined
  for free is recorded as a fee sample;
- A priority high enough to be mined for free paying no more than the minimum
  relay fee is recorded as a priority sample;
- Anything else is ambiguous and ignored.

At most ten transactions per block are sampled into a bin and every bin keeps
the latest hundred samples of each kind.

To estimate the fee for confirmation within n blocks all fee samples are
sorted from highest to lowest and the one at the position given by the number
of samples in the faster bins plus half of the samples in bin n is returned.
Until at least eleven samples exist no estimate is given.

Persistence

Estimates are persisted behind a header holding the minimum client version
able to read the file and the version that wrote it.  Files requiring a newer
client are rejected with ErrUnsupportedVersion and undecodable files with
ErrCorruptEstimates.  Callers are expected to fall back to the minimum relay
fee in either case.
*/
package fees
