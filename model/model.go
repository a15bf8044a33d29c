package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// This is useful for creating unique identifiers with context-specific prefixes,
// e.g. "txn_b2c0...", "int_9f41...".
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr)
	return idWithSuffix
}

// canonicalHash computes the SHA-256 hex digest of the canonical JSON form of
// the given payload. encoding/json marshals map keys in sorted order, which
// fixes one byte-for-byte deterministic serialization for the hash chain.
// The serialization must never change once transactions have been posted.
func canonicalHash(payload map[string]interface{}) string {
	serialized, err := json.Marshal(payload)
	if err != nil {
		// Payloads are built from plain strings, bools and nested maps;
		// marshal cannot fail for them.
		panic(fmt.Sprintf("canonical hash payload not serializable: %v", err))
	}
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:])
}
