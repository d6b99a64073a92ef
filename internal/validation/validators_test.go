package validation

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestValidation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Ingestion Validation Suite")
}

func validProvenance() ProvenanceInput {
	return ProvenanceInput{
		SourceType: "AUTHORITATIVE_REGISTRY",
		SourceID:   "bolagsverket:2026-07-31",
	}
}

var _ = Describe("ValidateMentionInput", func() {
	It("accepts a well-formed mention", func() {
		m := MentionInput{
			MentionType:    "COMPANY",
			SurfaceForm:    "Acme AB",
			NormalizedForm: "ACME AKTIEBOLAG",
			Provenance:     validProvenance(),
		}
		Expect(ValidateMentionInput(m)).To(Succeed())
	})

	It("rejects a missing surface form", func() {
		m := MentionInput{
			MentionType:    "COMPANY",
			NormalizedForm: "ACME AKTIEBOLAG",
			Provenance:     validProvenance(),
		}
		err := ValidateMentionInput(m)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("SurfaceForm"))
		Expect(err.Error()).To(ContainSubstring("is required"))
	})

	It("rejects an unknown mention type", func() {
		m := MentionInput{
			MentionType:    "VEHICLE",
			SurfaceForm:    "x",
			NormalizedForm: "x",
			Provenance:     validProvenance(),
		}
		err := ValidateMentionInput(m)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("must be one of"))
	})

	It("rejects a mention with no provenance source id", func() {
		m := MentionInput{
			MentionType:    "PERSON",
			SurfaceForm:    "x",
			NormalizedForm: "x",
			Provenance: ProvenanceInput{
				SourceType: "SCRAPE",
			},
		}
		err := ValidateMentionInput(m)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("SourceID"))
	})
})

var _ = Describe("ValidateProvenanceInput", func() {
	It("accepts a scrape provenance with a URL", func() {
		p := ProvenanceInput{
			SourceType: "SCRAPE",
			SourceID:   "hemsida-2026-07-31",
			URL:        "https://example.se/page",
		}
		Expect(ValidateProvenanceInput(p)).To(Succeed())
	})

	It("rejects a malformed URL", func() {
		p := ProvenanceInput{
			SourceType: "SCRAPE",
			SourceID:   "hemsida",
			URL:        "not-a-url",
		}
		err := ValidateProvenanceInput(p)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("valid URL"))
	})

	It("rejects a caller asserting derived-computation provenance", func() {
		p := ProvenanceInput{
			SourceType: "DERIVED_COMPUTATION",
			SourceID:   "risk-scorer",
		}
		err := ValidateProvenanceInput(p)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("constructed by the core"))
	})
})
