// Package validation validates inbound DTOs at the ingestion boundary
// (spec §6): every Mention an adapter delivers must carry type,
// surface_form, normalized_form and provenance with source_type and
// source_id. This is struct-tag validation of wire shapes, distinct
// from the pure Swedish identifier/name/address validators in pkg/sv.
package validation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	coreerrors "github.com/fraudwatch/sovereign-core/internal/errors"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
	})
	return validate
}

// MentionInput is the wire shape an ingestion adapter submits.
type MentionInput struct {
	MentionType      string            `validate:"required,oneof=PERSON COMPANY ADDRESS EVENT"`
	SurfaceForm      string            `validate:"required"`
	NormalizedForm   string            `validate:"required"`
	ExtractedIdentifiers map[string]string `validate:"omitempty"`
	ExtractedAttributes  map[string]string `validate:"omitempty"`
	Provenance       ProvenanceInput   `validate:"required"`
	DocumentLocation string            `validate:"omitempty"`
}

// ProvenanceInput is the wire shape of a Provenance record (spec §3
// Provenance).
type ProvenanceInput struct {
	SourceType      string `validate:"required,oneof=AUTHORITATIVE_REGISTRY SCRAPE MANUAL_ENTRY DERIVED_COMPUTATION"`
	SourceID        string `validate:"required"`
	URL             string `validate:"omitempty,url"`
	DocumentHash    string `validate:"omitempty"`
	ExtractionMethod string `validate:"omitempty"`
	ExtractorVersion string `validate:"omitempty"`
}

// ValidateMentionInput runs struct-tag validation and returns a typed
// ErrorTypeValidation CoreError describing every failing field,
// mirroring the teacher's "ValidateX returns a descriptive error" idiom.
func ValidateMentionInput(m MentionInput) error {
	if err := engine().Struct(m); err != nil {
		return translateValidationError(err)
	}
	return nil
}

// ValidateProvenanceInput validates a standalone Provenance submission.
func ValidateProvenanceInput(p ProvenanceInput) error {
	if err := engine().Struct(p); err != nil {
		return translateValidationError(err)
	}
	if p.SourceType == "DERIVED_COMPUTATION" {
		return coreerrors.NewValidationError("derived-computation provenance must be constructed by the core, not submitted by an adapter")
	}
	return nil
}

func translateValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return coreerrors.Wrap(err, coreerrors.ErrorTypeValidation, "validation failed")
	}
	var parts []string
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s %s", fe.Field(), describeTag(fe)))
	}
	return coreerrors.NewValidationError(strings.Join(parts, "; "))
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
