package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
	"github.com/fraudwatch/sovereign-core/pkg/model"
)

// encodeFactValue maps a FactValue onto the four nullable columns
// facts stores its typed payload in. LIST values are JSON-encoded
// into value_string alongside STRING, distinguished by value_kind.
func encodeFactValue(v *model.FactValue) (kind, valStr sql.NullString, valNum sql.NullFloat64, valBool sql.NullBool) {
	if v == nil {
		return
	}
	kind = sql.NullString{String: string(v.Kind), Valid: true}
	switch v.Kind {
	case model.ValueKindString:
		valStr = sql.NullString{String: v.String, Valid: true}
	case model.ValueKindNumber:
		valNum = sql.NullFloat64{Float64: v.Number, Valid: true}
	case model.ValueKindBool:
		valBool = sql.NullBool{Bool: v.Bool, Valid: true}
	case model.ValueKindList:
		encoded, _ := json.Marshal(v.List)
		valStr = sql.NullString{String: string(encoded), Valid: true}
	}
	return
}

func uuidArray(ids []uuid.UUID) any {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return pq.Array(strs)
}

func sqlLimit(n int) string { return strconv.Itoa(n) }

var relationshipPredicates = map[model.Predicate]bool{
	model.PredicateDirectorOf:    true,
	model.PredicateShareholderOf: true,
	model.PredicateRegisteredAt: true,
	model.PredicateSameAs:       true,
}

var attributePredicates = map[model.Predicate]bool{
	model.PredicateRiskScore:        true,
	model.PredicateShellIndicator:   true,
	model.PredicateDirectorVelocity: true,
	model.PredicateNetworkCluster:   true,
	model.PredicateRegistrationHub:  true,
	model.PredicateVulnerability:    true,
	model.PredicateSNICode:          true,
	model.PredicateEmployeeCount:    true,
	model.PredicateRevenue:          true,
	model.PredicateFSkattVAT:        true,
	model.PredicateFormationDate:    true,
	model.PredicateCompanyStatus:    true,
	model.PredicateBirthDate:        true,
}

func validatePredicateVocabulary(factType model.FactType, predicate model.Predicate) error {
	switch factType {
	case model.FactTypeRelationship:
		if !relationshipPredicates[predicate] {
			return coreerrors.NewInvariantError("predicate not allowed for RELATIONSHIP fact").WithDetails(string(predicate))
		}
	case model.FactTypeAttribute:
		if !attributePredicates[predicate] {
			return coreerrors.NewInvariantError("predicate not allowed for ATTRIBUTE fact").WithDetails(string(predicate))
		}
	default:
		return coreerrors.NewInvariantError("unknown fact_type").WithDetails(string(factType))
	}
	return nil
}

// AddFact validates predicate vocabulary, subject/object existence,
// and value typing, then inserts the fact.
func (s *Store) AddFact(ctx context.Context, f model.Fact) (uuid.UUID, error) {
	if err := validatePredicateVocabulary(f.FactType, f.Predicate); err != nil {
		return uuid.Nil, err
	}
	if f.FactType == model.FactTypeRelationship && f.Object == nil {
		return uuid.Nil, coreerrors.NewInvariantError("RELATIONSHIP fact requires an object")
	}
	if f.FactType == model.FactTypeAttribute && f.Value == nil {
		return uuid.Nil, coreerrors.NewInvariantError("ATTRIBUTE fact requires a value")
	}
	if f.IsDerived && len(f.DerivedFrom) == 0 {
		return uuid.Nil, coreerrors.NewInvariantError("derived fact must list at least one derived_from id")
	}

	id := uuid.New()
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := mustEntityExist(ctx, tx, f.Subject); err != nil {
			return err
		}
		if f.Object != nil {
			if err := mustEntityExist(ctx, tx, *f.Object); err != nil {
				return err
			}
		}
		if f.IsDerived {
			if err := mustFactsCurrentAndExist(ctx, tx, f.DerivedFrom); err != nil {
				return err
			}
		}

		kind, valStr, valNum, valBool := encodeFactValue(f.Value)

		_, err := tx.ExecContext(ctx, `
			INSERT INTO facts (
				id, fact_type, subject_id, predicate,
				value_kind, value_string, value_number, value_bool, object_id,
				valid_from, valid_to, confidence,
				source_type, source_id, source_url, document_hash, extraction_method, extractor_version, provenance_timestamp,
				is_derived, rule_name, derived_from
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
			id, f.FactType, f.Subject, f.Predicate,
			kind, valStr, valNum, valBool, f.Object,
			f.ValidFrom, f.ValidTo, f.Confidence,
			f.Provenance.SourceType, f.Provenance.SourceID, nullIfEmpty(f.Provenance.URL), nullIfEmpty(f.Provenance.DocumentHash),
			nullIfEmpty(f.Provenance.ExtractionMethod), nullIfEmpty(f.Provenance.ExtractorVersion), f.Provenance.Timestamp,
			f.IsDerived, nullIfEmpty(f.RuleName), uuidArray(f.DerivedFrom),
		)
		if err != nil {
			return mapPostgresError("add_fact", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// SupersedeFact atomically marks oldID superseded by a newly inserted
// fact and returns the new fact's id.
func (s *Store) SupersedeFact(ctx context.Context, oldID uuid.UUID, newFact model.Fact) (uuid.UUID, error) {
	if err := validatePredicateVocabulary(newFact.FactType, newFact.Predicate); err != nil {
		return uuid.Nil, err
	}
	newID := uuid.New()
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var current uuid.UUID
		err := tx.GetContext(ctx, &current, `SELECT id FROM facts WHERE id = $1 AND superseded_by IS NULL`, oldID)
		if err != nil {
			if err == sql.ErrNoRows {
				return coreerrors.NewNotFoundError("current fact").WithDetailsf("id=%s", oldID)
			}
			return mapPostgresError("supersede_fact_lookup", err)
		}
		if current == newID {
			return coreerrors.NewInvariantError("a fact cannot supersede itself")
		}

		if err := mustEntityExist(ctx, tx, newFact.Subject); err != nil {
			return err
		}

		kind, valStr, valNum, valBool := encodeFactValue(newFact.Value)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO facts (
				id, fact_type, subject_id, predicate,
				value_kind, value_string, value_number, value_bool, object_id,
				valid_from, valid_to, confidence,
				source_type, source_id, source_url, document_hash, extraction_method, extractor_version, provenance_timestamp,
				is_derived, rule_name, derived_from
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
			newID, newFact.FactType, newFact.Subject, newFact.Predicate,
			kind, valStr, valNum, valBool, newFact.Object,
			newFact.ValidFrom, newFact.ValidTo, newFact.Confidence,
			newFact.Provenance.SourceType, newFact.Provenance.SourceID, nullIfEmpty(newFact.Provenance.URL), nullIfEmpty(newFact.Provenance.DocumentHash),
			nullIfEmpty(newFact.Provenance.ExtractionMethod), nullIfEmpty(newFact.Provenance.ExtractorVersion), newFact.Provenance.Timestamp,
			newFact.IsDerived, nullIfEmpty(newFact.RuleName), uuidArray(newFact.DerivedFrom),
		)
		if err != nil {
			return mapPostgresError("supersede_fact_insert", err)
		}

		_, err = tx.ExecContext(ctx, `UPDATE facts SET superseded_by = $2, superseded_at = now() WHERE id = $1`, oldID, newID)
		if err != nil {
			return mapPostgresError("supersede_fact_mark", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return newID, nil
}

type factRow struct {
	ID          uuid.UUID       `db:"id"`
	FactType    string          `db:"fact_type"`
	SubjectID   uuid.UUID       `db:"subject_id"`
	Predicate   string          `db:"predicate"`
	ValueKind   sql.NullString  `db:"value_kind"`
	ValueString sql.NullString  `db:"value_string"`
	ValueNumber sql.NullFloat64 `db:"value_number"`
	ValueBool   sql.NullBool    `db:"value_bool"`
	ObjectID    uuid.NullUUID   `db:"object_id"`
	ValidFrom   time.Time       `db:"valid_from"`
	ValidTo     sql.NullTime    `db:"valid_to"`
	Confidence  float64         `db:"confidence"`
	CreatedAt   time.Time       `db:"created_at"`
	IsDerived   bool            `db:"is_derived"`
	RuleName    sql.NullString  `db:"rule_name"`
}

func (r factRow) toModel() model.Fact {
	f := model.Fact{
		ID:         r.ID,
		FactType:   model.FactType(r.FactType),
		Subject:    r.SubjectID,
		Predicate:  model.Predicate(r.Predicate),
		ValidFrom:  r.ValidFrom,
		Confidence: r.Confidence,
		CreatedAt:  r.CreatedAt,
		IsDerived:  r.IsDerived,
		RuleName:   r.RuleName.String,
	}
	if r.ValidTo.Valid {
		t := r.ValidTo.Time
		f.ValidTo = &t
	}
	if r.ObjectID.Valid {
		id := r.ObjectID.UUID
		f.Object = &id
	}
	if r.ValueKind.Valid {
		v := model.FactValue{Kind: model.ValueKind(r.ValueKind.String)}
		switch v.Kind {
		case model.ValueKindString:
			v.String = r.ValueString.String
		case model.ValueKindNumber:
			v.Number = r.ValueNumber.Float64
		case model.ValueKindBool:
			v.Bool = r.ValueBool.Bool
		case model.ValueKindList:
			_ = json.Unmarshal([]byte(r.ValueString.String), &v.List)
		}
		f.Value = &v
	}
	return f
}

// CurrentFacts returns non-superseded, validity-active facts for
// subject, optionally restricted to predicate.
func (s *Store) CurrentFacts(ctx context.Context, subject uuid.UUID, predicate *model.Predicate) ([]model.Fact, error) {
	query := `SELECT * FROM facts WHERE subject_id = $1 AND superseded_by IS NULL AND (valid_to IS NULL OR valid_to >= CURRENT_DATE)`
	args := []any{subject}
	if predicate != nil {
		query += ` AND predicate = $2`
		args = append(args, *predicate)
	}
	query += ` ORDER BY id`

	var rows []factRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapPostgresError("current_facts", err)
	}
	facts := make([]model.Fact, 0, len(rows))
	for _, r := range rows {
		facts = append(facts, r.toModel())
	}
	return facts, nil
}

// NeighborDirection constrains Neighbors traversal.
type NeighborDirection string

const (
	DirectionOutgoing NeighborDirection = "OUTGOING"
	DirectionIncoming NeighborDirection = "INCOMING"
	DirectionBoth     NeighborDirection = "BOTH"
)

// Neighbors returns entity ids reachable from entity by one hop over
// non-superseded RELATIONSHIP facts, optionally restricted to
// predicates. valid_to is not checked, so a relationship whose validity
// has ended is still followed.
func (s *Store) Neighbors(ctx context.Context, entity uuid.UUID, predicates []model.Predicate, direction NeighborDirection, limit int) ([]uuid.UUID, error) {
	if direction == "" {
		direction = DirectionBoth
	}
	if limit <= 0 {
		limit = 1000
	}

	var clauses []string
	args := []any{entity}
	predClause := ""
	if len(predicates) > 0 {
		predClause = " AND predicate = ANY($2)"
		args = append(args, predicateStrings(predicates))
	}

	if direction == DirectionOutgoing || direction == DirectionBoth {
		clauses = append(clauses, "SELECT object_id AS neighbor FROM facts WHERE subject_id = $1 AND object_id IS NOT NULL AND superseded_by IS NULL"+predClause)
	}
	if direction == DirectionIncoming || direction == DirectionBoth {
		clauses = append(clauses, "SELECT subject_id AS neighbor FROM facts WHERE object_id = $1 AND superseded_by IS NULL"+predClause)
	}

	query := "SELECT DISTINCT neighbor FROM (" + clauses[0]
	for _, c := range clauses[1:] {
		query += " UNION " + c
	}
	query += ") AS n LIMIT " + sqlLimit(limit)

	var ids []uuid.UUID
	if err := s.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, mapPostgresError("neighbors", err)
	}
	return ids, nil
}

func predicateStrings(preds []model.Predicate) []string {
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = string(p)
	}
	return out
}

func mustEntityExist(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM entities WHERE id = $1)`, id); err != nil {
		return mapPostgresError("entity_exists", err)
	}
	if !exists {
		return coreerrors.NewNotFoundError("entity").WithDetailsf("id=%s", id)
	}
	return nil
}

func mustFactsCurrentAndExist(ctx context.Context, tx *sqlx.Tx, ids []uuid.UUID) error {
	for _, id := range ids {
		var exists bool
		err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM facts WHERE id = $1 AND superseded_by IS NULL)`, id)
		if err != nil {
			return mapPostgresError("derived_from_exists", err)
		}
		if !exists {
			return coreerrors.NewInvariantError("derived_from fact must exist and be non-superseded").WithDetailsf("id=%s", id)
		}
	}
	return nil
}
