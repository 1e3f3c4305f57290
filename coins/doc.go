// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package coins provides the per-transaction view of unspent outputs used by the
memory pool and the wallet.

A Coins record holds the outputs of one transaction that are still unspent
together with the height of the block that created them and whether they came
from a coinbase or coinstake, which governs their maturity.

Views are composed rather than inherited.  The View interface is the read
surface every layer exposes.  A Store persists records in goleveldb or pebble,
a ViewCache stages modifications on top of any View and flushes them to a
Writer, and further layers such as the memory pool overlay simply wrap another
View.
*/
package coins
