// Package audit owns the hash-chaining algorithm behind the core's
// tamper-evident audit log (spec §4.10): pkg/store persists entries
// and links them, but the hash function itself, and the verification
// pass that detects a broken chain, live here.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// GenesisHash seeds the chain before any entry exists. Must match
// pkg/store's own genesis constant byte-for-byte, since Verify replays
// the chain from the same starting point pkg/store used to compute
// the first entry's hash.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Hasher implements store.AuditHasher. entry_hash = sha256(previous_hash
// || canonical_serialize(entry)), where canonical_serialize covers
// every field that makes an entry what it is except the hashes
// themselves: sequence position is intentionally excluded, since it is
// assigned by the database after the hash is computed.
type Hasher struct{}

func NewHasher() Hasher { return Hasher{} }

func (Hasher) ComputeHash(previousHash string, entry model.AuditEntry) string {
	return computeHash(previousHash, entry)
}

func computeHash(previousHash string, entry model.AuditEntry) string {
	payload, _ := json.Marshal(entry.Payload) // map[string]any keys sort lexically under encoding/json
	canonical := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s",
		previousHash,
		entry.ID.String(),
		entry.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z"),
		entry.EventType,
		entry.Actor.Type, entry.Actor.ID,
		entry.Target.Type, entry.Target.ID.String(),
	)
	sum := sha256.Sum256(append([]byte(canonical+"|"), payload...))
	return hex.EncodeToString(sum[:])
}

// VerifyStatus is the outcome of a chain-verification pass.
type VerifyStatus string

const (
	StatusIntact VerifyStatus = "INTACT"
	StatusBroken VerifyStatus = "BROKEN"
	StatusEmpty  VerifyStatus = "EMPTY"
)

// VerifyResult reports where, if anywhere, the chain first diverges
// from what its own hashes claim.
type VerifyResult struct {
	Status        VerifyStatus
	EntriesChecked int
	// BrokenAtSequence is the sequence_num of the first entry whose
	// previous_hash or entry_hash fails to match, valid only when
	// Status == StatusBroken.
	BrokenAtSequence int64
	Reason           string
}

// Chain is the subset of *store.Store pkg/audit needs to read the
// full log for verification.
type Chain interface {
	AuditChain(ctx context.Context) ([]model.AuditEntry, error)
}

// Verify recomputes the hash chain from GenesisHash and reports the
// first point, if any, where a persisted entry's previous_hash or
// entry_hash no longer matches what recomputing from its neighbors
// would produce. A mismatch means the stored payload, ordering, or
// hash itself was altered after the fact.
func Verify(entries []model.AuditEntry) VerifyResult {
	if len(entries) == 0 {
		return VerifyResult{Status: StatusEmpty}
	}

	expectedPrev := GenesisHash
	for i, entry := range entries {
		if entry.PreviousHash != expectedPrev {
			return VerifyResult{
				Status: StatusBroken, EntriesChecked: i, BrokenAtSequence: entry.SequenceNum,
				Reason: "previous_hash does not match the prior entry's entry_hash",
			}
		}
		want := computeHash(entry.PreviousHash, entry)
		if entry.EntryHash != want {
			return VerifyResult{
				Status: StatusBroken, EntriesChecked: i, BrokenAtSequence: entry.SequenceNum,
				Reason: "entry_hash does not match the entry's own recomputed hash",
			}
		}
		expectedPrev = entry.EntryHash
	}

	return VerifyResult{Status: StatusIntact, EntriesChecked: len(entries)}
}

// VerifyChain reads the full chain from store and verifies it. This is
// the store-backed entry point (neither pkg/scheduler nor
// cmd/coreservice calls it); Verify itself stays pure and unit-testable
// against hand-built entry slices.
func VerifyChain(ctx context.Context, store Chain) (VerifyResult, error) {
	entries, err := store.AuditChain(ctx)
	if err != nil {
		return VerifyResult{}, err
	}
	return Verify(entries), nil
}
