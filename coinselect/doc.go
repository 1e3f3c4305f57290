// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package coinselect picks the outputs that fund a transaction.

A CoinSelector is handed the size of a draft transaction, the value the
draft must raise and a list of candidate outputs, each annotated with the
number of bytes spending it adds once signed.  MinimumFeeSelector ranks the
candidates by the value they contribute net of the fee for their own
signature and takes them in that order, recomputing the relay fee of the
growing transaction after each one, until the selected value covers the
target, the fee and a change output above the dust floor.

Selections never exceed the configured maximum transaction size or fee
ceiling.  Every kind of failure is reported as ErrNoSelection.
*/
package coinselect
