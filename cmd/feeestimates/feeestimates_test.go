// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/divi-project/divid/fees"
	"github.com/stretchr/testify/require"
)

func TestLoadAndWriteEstimates(t *testing.T) {
	minRelay := fees.FeeRate(1000)
	estimator := fees.NewEstimator(3)
	for height := int32(2); height < 4; height++ {
		var entries []fees.ConfirmedTx
		for i := 0; i < 10; i++ {
			entries = append(entries, fees.ConfirmedTx{
				Fee:    btcutil.Amount(5000 + i),
				Size:   1000,
				Height: height - 1,
			})
		}
		estimator.SeenBlock(entries, height, minRelay)
	}

	var buf bytes.Buffer
	require.NoError(t, fees.WriteEstimates(&buf, estimator))

	pool, loaded, err := loadEstimates(&buf, minRelay, 3)
	require.NoError(t, err)
	require.Equal(t, int32(3), loaded.BestHeight())
	require.Equal(t, estimator.EstimateFee(1), pool.EstimateFee(1))

	var out bytes.Buffer
	writeEstimates(&out, pool, 3)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[1], estimator.EstimateFee(1).String())
	require.True(t, strings.HasSuffix(lines[1], "-"))
}

func TestLoadEstimatesCorrupt(t *testing.T) {
	_, _, err := loadEstimates(bytes.NewReader([]byte{1, 2, 3}), 1000, 3)
	require.True(t, fees.IsErrorCode(err, fees.ErrCorruptEstimates))
}
