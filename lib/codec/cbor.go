// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding for loadout's
// machine-written state files (the fetch-cache index). Encoding is
// Core Deterministic (RFC 8949 §4.2): sorted map keys, smallest
// integer encoding, no indefinite-length items. The same logical
// state always produces identical bytes, so index files diff cleanly
// and tests can compare encodings directly.
package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Loadout never uses non-string map keys. When the decode
		// target is any-typed, pick map[string]any rather than the
		// CBOR default map[interface{}]interface{}, which the rest
		// of the codebase (and encoding/json) cannot consume. Struct
		// field decoding is unaffected.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v. Unknown fields are silently
// ignored for forward compatibility.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
