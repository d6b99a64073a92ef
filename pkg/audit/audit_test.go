package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fraudwatch/sovereign-core/pkg/model"
)

func chainEntry(t *testing.T, prev string, seq int64, eventType string) model.AuditEntry {
	t.Helper()
	e := model.AuditEntry{
		ID:          uuid.New(),
		SequenceNum: seq,
		Timestamp:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(seq) * time.Second),
		EventType:   eventType,
		Actor:       model.Actor{Type: model.ActorTypeSystem, ID: "test"},
		Target:      model.Target{Type: "entity", ID: uuid.New()},
		Payload:     map[string]any{"seq": seq},
	}
	e.PreviousHash = prev
	e.EntryHash = NewHasher().ComputeHash(prev, e)
	return e
}

func buildChain(t *testing.T, n int) []model.AuditEntry {
	t.Helper()
	entries := make([]model.AuditEntry, 0, n)
	prev := GenesisHash
	for i := 0; i < n; i++ {
		e := chainEntry(t, prev, int64(i+1), "ENTITY_CREATE")
		entries = append(entries, e)
		prev = e.EntryHash
	}
	return entries
}

func TestVerifyIntactChain(t *testing.T) {
	entries := buildChain(t, 5)
	result := Verify(entries)
	if result.Status != StatusIntact || result.EntriesChecked != 5 {
		t.Errorf("Verify() = %+v, want INTACT with 5 entries checked", result)
	}
}

func TestVerifyEmptyChain(t *testing.T) {
	if result := Verify(nil); result.Status != StatusEmpty {
		t.Errorf("Verify(nil) = %+v, want EMPTY", result)
	}
}

func TestVerifyDetectsTamperedPayload(t *testing.T) {
	entries := buildChain(t, 3)
	entries[1].Payload["seq"] = "tampered"

	result := Verify(entries)
	if result.Status != StatusBroken || result.BrokenAtSequence != entries[1].SequenceNum {
		t.Errorf("Verify() = %+v, want BROKEN at sequence %d", result, entries[1].SequenceNum)
	}
}

func TestVerifyDetectsBrokenLink(t *testing.T) {
	entries := buildChain(t, 3)
	entries[2].PreviousHash = "not-the-real-previous-hash"

	result := Verify(entries)
	if result.Status != StatusBroken || result.BrokenAtSequence != entries[2].SequenceNum {
		t.Errorf("Verify() = %+v, want BROKEN at sequence %d", result, entries[2].SequenceNum)
	}
}

func TestComputeHashIsDeterministic(t *testing.T) {
	e := chainEntry(t, GenesisHash, 1, "ENTITY_CREATE")
	h1 := NewHasher().ComputeHash(GenesisHash, e)
	h2 := NewHasher().ComputeHash(GenesisHash, e)
	if h1 != h2 {
		t.Errorf("ComputeHash is not deterministic: %s != %s", h1, h2)
	}
}
