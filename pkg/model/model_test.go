package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestFactIsCurrent(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	supersededID := uuid.New()

	cases := []struct {
		name string
		fact Fact
		want bool
	}{
		{
			name: "no valid_to, not superseded",
			fact: Fact{},
			want: true,
		},
		{
			name: "valid_to in the future",
			fact: Fact{ValidTo: ptrTime(now.AddDate(0, 0, 1))},
			want: true,
		},
		{
			name: "valid_to in the past",
			fact: Fact{ValidTo: ptrTime(now.AddDate(0, 0, -1))},
			want: false,
		},
		{
			name: "superseded",
			fact: Fact{SupersededBy: &supersededID},
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.fact.IsCurrent(now); got != tc.want {
				t.Errorf("IsCurrent() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolutionIsTerminal(t *testing.T) {
	if (Resolution{Status: ResolutionStatusPending}).IsTerminal() {
		t.Error("PENDING should not be terminal")
	}
	if !(Resolution{Status: ResolutionStatusAutoMatched}).IsTerminal() {
		t.Error("AUTO_MATCHED should be terminal")
	}
}

func TestEntityStatusPredicates(t *testing.T) {
	active := Entity{Status: EntityStatusActive}
	if !active.IsActive() || !active.IsPII() {
		t.Error("active entity should be active and retain PII")
	}

	anon := Entity{Status: EntityStatusAnonymized}
	if anon.IsActive() || anon.IsPII() {
		t.Error("anonymized entity should not be active or retain PII")
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestResolutionDecisionIsPending(t *testing.T) {
	if !(ResolutionDecision{Status: ReviewStatusPendingReview}).IsPending() {
		t.Error("PENDING_REVIEW decision should report pending")
	}
	if (ResolutionDecision{Status: ReviewStatusHumanMatched}).IsPending() {
		t.Error("HUMAN_MATCHED decision should not report pending")
	}
}
