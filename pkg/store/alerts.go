package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// CreateAlert persists a newly generated alert, unacknowledged.
func (s *Store) CreateAlert(ctx context.Context, a model.Alert) (uuid.UUID, error) {
	id := uuid.New()
	signals, err := json.Marshal(a.Signals)
	if err != nil {
		return uuid.Nil, coreerrors.NewInvariantError("failed to encode alert signals")
	}
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO alerts (id, entity_id, signals, combined_score, rule_name)
			VALUES ($1, $2, $3, $4, $5)`,
			id, a.Entity, signals, a.CombinedScore, a.RuleName)
		if err != nil {
			return mapPostgresError("create_alert", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

type alertRow struct {
	ID             uuid.UUID      `db:"id"`
	EntityID       uuid.UUID      `db:"entity_id"`
	Signals        []byte         `db:"signals"`
	CombinedScore  float64        `db:"combined_score"`
	RuleName       string         `db:"rule_name"`
	CreatedAt      time.Time      `db:"created_at"`
	Acknowledged   bool           `db:"acknowledged"`
	AcknowledgedAt sql.NullTime   `db:"acknowledged_at"`
	AcknowledgedBy sql.NullString `db:"acknowledged_by"`
}

func (r alertRow) toModel() model.Alert {
	a := model.Alert{
		ID: r.ID, Entity: r.EntityID, CombinedScore: r.CombinedScore,
		RuleName: r.RuleName, CreatedAt: r.CreatedAt, Acknowledged: r.Acknowledged,
		AcknowledgedBy: r.AcknowledgedBy.String,
	}
	_ = json.Unmarshal(r.Signals, &a.Signals)
	if r.AcknowledgedAt.Valid {
		t := r.AcknowledgedAt.Time
		a.AcknowledgedAt = &t
	}
	return a
}

// ListUnacknowledgedAlerts returns open alerts, newest first.
func (s *Store) ListUnacknowledgedAlerts(ctx context.Context, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []alertRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM alerts WHERE NOT acknowledged ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, mapPostgresError("list_unacknowledged_alerts", err)
	}
	alerts := make([]model.Alert, 0, len(rows))
	for _, r := range rows {
		alerts = append(alerts, r.toModel())
	}
	return alerts, nil
}

// ListAlerts returns alerts newest first, optionally restricted to
// ruleName (empty means any rule) and to a specific acknowledged
// state (nil means either). Backs the alerts_list query operation,
// which ListUnacknowledgedAlerts alone cannot express.
func (s *Store) ListAlerts(ctx context.Context, ruleName string, acknowledged *bool, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT * FROM alerts WHERE true`
	args := []any{}
	if ruleName != "" {
		args = append(args, ruleName)
		query += fmt.Sprintf(" AND rule_name = $%d", len(args))
	}
	if acknowledged != nil {
		args = append(args, *acknowledged)
		query += fmt.Sprintf(" AND acknowledged = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	var rows []alertRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapPostgresError("list_alerts", err)
	}
	alerts := make([]model.Alert, 0, len(rows))
	for _, r := range rows {
		alerts = append(alerts, r.toModel())
	}
	return alerts, nil
}

// AcknowledgeAlert marks an alert reviewed.
func (s *Store) AcknowledgeAlert(ctx context.Context, id uuid.UUID, by string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE alerts SET acknowledged = true, acknowledged_at = now(), acknowledged_by = $2
			WHERE id = $1 AND NOT acknowledged`, id, by)
		if err != nil {
			return mapPostgresError("acknowledge_alert", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return coreerrors.NewInvariantError("alert already acknowledged or not found").WithDetailsf("id=%s", id)
		}
		return nil
	})
}
