// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"
)

// pebbleBackend stores coins in a pebble database.
type pebbleBackend struct {
	db *pebble.DB
}

// openPebble opens or creates the pebble database at path.  An empty path
// opens an in-memory database.
func openPebble(path string) (*pebbleBackend, error) {
	opts := &pebble.Options{}
	if path == "" {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return &pebbleBackend{db: db}, nil
}

func (b *pebbleBackend) get(key []byte) ([]byte, error) {
	value, closer, err := b.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// The returned slice is only valid until the closer is called.
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (b *pebbleBackend) write(puts map[string][]byte, deletes [][]byte) error {
	batch := b.db.NewBatch()
	defer batch.Close()

	for key, value := range puts {
		if err := batch.Set([]byte(key), value, nil); err != nil {
			return err
		}
	}
	for _, key := range deletes {
		if err := batch.Delete(key, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (b *pebbleBackend) close() error {
	return b.db.Close()
}
