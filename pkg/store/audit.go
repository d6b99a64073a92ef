package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/metrics"
	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// genesisHash seeds the chain before any entry exists.
const genesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// AppendAudit appends entry to the hash chain inside its own
// transaction, serializing concurrent appends with a transaction-scoped
// advisory lock taken before the chain tail is read, so entry_hash
// linkage can never race. It is
// contracted to fail only on storage exhaustion, never to silently
// drop an event.
func (s *Store) AppendAudit(ctx context.Context, entry model.AuditEntry) (model.AuditEntry, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		// The lock also covers an empty log, where FOR UPDATE has no tail
		// row to lock, and is released when the transaction ends.
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('audit_log'))`); err != nil {
			return mapPostgresError("append_audit_lock", err)
		}
		var prevHash string
		err := tx.GetContext(ctx, &prevHash, `
			SELECT entry_hash FROM audit_log ORDER BY sequence_num DESC LIMIT 1 FOR UPDATE`)
		if err == sql.ErrNoRows {
			prevHash = genesisHash
		} else if err != nil {
			return mapPostgresError("append_audit_tail", err)
		}

		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.PreviousHash = prevHash
		entry.EntryHash = s.hasher.ComputeHash(prevHash, entry)

		payload, err := json.Marshal(entry.Payload)
		if err != nil {
			return coreerrors.NewValidationError("audit payload must be JSON-serializable")
		}

		var seq int64
		err = tx.GetContext(ctx, &seq, `
			INSERT INTO audit_log (id, event_timestamp, event_type, actor_type, actor_id, target_type, target_id, payload, previous_hash, entry_hash)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING sequence_num`,
			entry.ID, entry.Timestamp, entry.EventType, entry.Actor.Type, entry.Actor.ID,
			entry.Target.Type, entry.Target.ID, payload, entry.PreviousHash, entry.EntryHash,
		)
		if err != nil {
			return mapPostgresError("append_audit", err)
		}
		entry.SequenceNum = seq
		return nil
	})
	if err != nil {
		return model.AuditEntry{}, err
	}
	metrics.RecordAudit(entry.EventType)
	return entry, nil
}

type auditRow struct {
	SequenceNum  int64           `db:"sequence_num"`
	ID           uuid.UUID       `db:"id"`
	Timestamp    sql.NullTime    `db:"event_timestamp"`
	EventType    string          `db:"event_type"`
	ActorType    string          `db:"actor_type"`
	ActorID      string          `db:"actor_id"`
	TargetType   string          `db:"target_type"`
	TargetID     uuid.UUID       `db:"target_id"`
	Payload      json.RawMessage `db:"payload"`
	PreviousHash string          `db:"previous_hash"`
	EntryHash    string          `db:"entry_hash"`
}

func (r auditRow) toModel() model.AuditEntry {
	var payload map[string]any
	json.Unmarshal(r.Payload, &payload)
	return model.AuditEntry{
		ID:           r.ID,
		SequenceNum:  r.SequenceNum,
		Timestamp:    r.Timestamp.Time,
		EventType:    r.EventType,
		Actor:        model.Actor{Type: model.ActorType(r.ActorType), ID: r.ActorID},
		Target:       model.Target{Type: r.TargetType, ID: r.TargetID},
		Payload:      payload,
		PreviousHash: r.PreviousHash,
		EntryHash:    r.EntryHash,
	}
}

// AuditChain returns the full chain in insertion order, for
// pkg/audit's tamper-verification pass.
func (s *Store) AuditChain(ctx context.Context) ([]model.AuditEntry, error) {
	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM audit_log ORDER BY sequence_num ASC`); err != nil {
		return nil, mapPostgresError("audit_chain", err)
	}
	out := make([]model.AuditEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
