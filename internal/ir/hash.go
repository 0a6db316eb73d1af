package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix
// enables future algorithm migration without ambiguity.
const (
	DomainSchema = "manifold/schema/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of a compiled
// schema. The same schema always produces the same fingerprint, across
// restarts and across hosts; any semantic change to a declaration,
// field number or rendered name produces a different one.
//
// The schema is serialized through its JSON form and re-encoded as
// canonical JSON so that map-free struct data hashes identically no
// matter how it was constructed.
func Fingerprint(s *Schema) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("Fingerprint: failed to decode: %w", err)
	}

	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to canonicalize: %w", err)
	}
	return hashWithDomain(DomainSchema, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(s *Schema) string {
	fp, err := Fingerprint(s)
	if err != nil {
		panic(err)
	}
	return fp
}
