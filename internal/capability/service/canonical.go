package service

import (
	"encoding/binary"
	"sort"

	"github.com/allisson/warden/internal/capability/domain"
)

// CanonicalPayload converts a token to its canonical byte representation for
// signing: every field except the signature, in fixed order, with
// length-prefixed encoding for variable-length fields to prevent ambiguity.
// Scope keys are sorted so the encoding is deterministic.
//
// Field order: id || thread_id || directive_id || parent_token_id ||
// audience || issued_at || expires_at || caps.
func CanonicalPayload(token *domain.CapabilityToken) []byte {
	// Estimate capacity to reduce allocations (typical token ~512B)
	buf := make([]byte, 0, 512)

	// Append UUIDs (16 bytes each)
	buf = append(buf, token.ID[:]...)
	buf = append(buf, token.ThreadID[:]...)
	buf = append(buf, token.DirectiveID[:]...)

	// Parent token id is optional; length-prefixed so absent and zero-valued
	// parents encode differently.
	if token.ParentTokenID != nil {
		buf = appendLengthPrefixed(buf, token.ParentTokenID[:])
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	// Append audience (length-prefixed)
	buf = appendLengthPrefixed(buf, []byte(token.Audience))

	// Append timestamps (Unix nano for precision)
	buf = appendUint64(buf, uint64(token.IssuedAt.UnixNano()))
	buf = appendUint64(buf, uint64(token.ExpiresAt.UnixNano()))

	// Append grants in directive order
	buf = appendUint32(buf, uint32(len(token.Caps)))
	for _, grant := range token.Caps {
		buf = appendLengthPrefixed(buf, []byte(grant.Capability))

		keys := make([]string, 0, len(grant.Scope))
		for k := range grant.Scope {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf = appendUint32(buf, uint32(len(keys)))
		for _, k := range keys {
			buf = appendLengthPrefixed(buf, []byte(k))
			buf = appendLengthPrefixed(buf, []byte(grant.Scope[k]))
		}
	}

	return buf
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
// Format: [length (4 bytes)] + [data (length bytes)]
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	buf = appendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}
