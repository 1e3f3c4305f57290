// Copyright (c) 2024 The Divi developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinselect

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

const (
	// inputFramingSize is the size of an input without its signature
	// script: the previous outpoint (36 bytes) and the sequence (4 bytes).
	inputFramingSize = 40

	// maxSigPushSize is the size of a push of a DER signature with its hash
	// type byte: OP_DATA_73 + 73 bytes.
	maxSigPushSize = 1 + 73

	// compressedPubKeyPushSize is the size of a push of a compressed public
	// key: OP_DATA_33 + 33 bytes.
	compressedPubKeyPushSize = 1 + 33

	// uncompressedPubKeyPushSize is the size of a push of an uncompressed
	// public key: OP_DATA_65 + 65 bytes.
	uncompressedPubKeyPushSize = 1 + 65
)

// InputSigningSize returns the number of bytes an input spending an output
// with the passed public key script adds to a transaction once signed.  The
// signature script is estimated with signatures of maximum length, and the
// public key of a pay-to-pubkey-hash output is assumed to be uncompressed
// since only its hash is known.  Scripts whose signature script cannot be
// predicted from the public key script alone, such as pay-to-script-hash,
// are rejected.
func InputSigningSize(pkScript []byte) (int, error) {
	var sigScriptSize int
	switch class := txscript.GetScriptClass(pkScript); class {
	case txscript.PubKeyTy:
		sigScriptSize = maxSigPushSize

	case txscript.PubKeyHashTy:
		sigScriptSize = maxSigPushSize + uncompressedPubKeyPushSize

	case txscript.MultiSigTy:
		_, numSigs, err := txscript.CalcMultiSigStats(pkScript)
		if err != nil {
			return 0, errors.Wrap(err, "unable to parse multisig script")
		}
		// OP_0 works around the extra item popped by OP_CHECKMULTISIG.
		sigScriptSize = 1 + numSigs*maxSigPushSize

	default:
		return 0, errors.Errorf("unable to estimate the signing size of "+
			"%v script", class)
	}

	return inputFramingSize + wire.VarIntSerializeSize(uint64(sigScriptSize)) +
		sigScriptSize, nil
}
