// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package partio

import (
	"bytes"
	"encoding/gob"
)

// Exchange payloads cross the transport gob-encoded, one message per
// (sender, receiver) pair: a single value in the fixed-size protocol,
// a slab of values in the variable-length protocol. Payload types
// must therefore be gob-encodable when a real transport is in use;
// the simulated backend never encodes.

func encodeValue[T any](v T) ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(&v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decodeValue[T any](p []byte, v *T) error {
	return gob.NewDecoder(bytes.NewReader(p)).Decode(v)
}

func encodeSlab[T any](vs []T) ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(vs); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decodeSlab[T any](p []byte, vs *[]T) error {
	return gob.NewDecoder(bytes.NewReader(p)).Decode(vs)
}
