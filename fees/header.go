// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fees

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/divi-project/divid/internal/version"
	"github.com/pkg/errors"
)

// MinReaderVersion is the oldest client version able to read the estimates
// written by this package.
const MinReaderVersion int32 = 120000

// WriteHeader writes the version header that precedes persisted estimates:
// the minimum client version needed to read them followed by the version of
// the writer, both little endian int32.
func WriteHeader(w io.Writer) error {
	header := [2]int32{MinReaderVersion, version.ClientVersion}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return errors.Wrap(err, "failed to write estimates header")
	}
	return nil
}

// ReadHeader reads the version header written by WriteHeader and returns the
// version of the writer.  A file that requires a newer client is rejected
// with ErrUnsupportedVersion.
func ReadHeader(r io.Reader) (int32, error) {
	var header [2]int32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		str := errors.Wrap(err, "failed to read estimates header").Error()
		return 0, feesError(ErrCorruptEstimates, str)
	}
	if header[0] > version.ClientVersion {
		str := fmt.Sprintf("up-version (%d) fee estimates file", header[0])
		return 0, feesError(ErrUnsupportedVersion, str)
	}
	return header[1], nil
}

// StateReadWriter is implemented by estimators whose state can be persisted.
// It is implemented by *Estimator.
type StateReadWriter interface {
	// Write serializes the estimator state.
	Write(w io.Writer) error

	// Read replaces the estimator state with a serialized one.
	Read(r io.Reader, minRelayFee FeeRate) error
}

// Ensure Estimator implements the StateReadWriter interface.
var _ StateReadWriter = (*Estimator)(nil)

// WriteEstimates writes the version header followed by the state of e.  A nil
// e is rejected with ErrNoEstimator.
func WriteEstimates(w io.Writer, e StateReadWriter) error {
	if e == nil {
		return feesError(ErrNoEstimator, "no fee estimator available")
	}
	if err := WriteHeader(w); err != nil {
		return err
	}
	return e.Write(w)
}

// ReadEstimates reads a version header and estimator state into e.  The
// header is checked before e so an up-version file is reported even when no
// estimator is available.
func ReadEstimates(r io.Reader, e StateReadWriter, minRelayFee FeeRate) error {
	writer, err := ReadHeader(r)
	if err != nil {
		return err
	}
	if e == nil {
		return feesError(ErrNoEstimator, "no fee estimator available")
	}
	log.Debugf("Reading fee estimates written by version %d", writer)
	return e.Read(r, minRelayFee)
}
