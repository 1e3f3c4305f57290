// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coins

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// levelDBBackend stores coins in a goleveldb database.
type levelDBBackend struct {
	db *leveldb.DB
}

// openLevelDB opens or creates the leveldb database at path.  An empty path
// opens an in-memory database.
func openLevelDB(path string) (*levelDBBackend, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, err
	}
	return &levelDBBackend{db: db}, nil
}

func (b *levelDBBackend) get(key []byte) ([]byte, error) {
	value, err := b.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	return value, err
}

func (b *levelDBBackend) write(puts map[string][]byte, deletes [][]byte) error {
	batch := new(leveldb.Batch)
	for key, value := range puts {
		batch.Put([]byte(key), value)
	}
	for _, key := range deletes {
		batch.Delete(key)
	}
	return b.db.Write(batch, &opt.WriteOptions{Sync: true})
}

func (b *levelDBBackend) close() error {
	return b.db.Close()
}
