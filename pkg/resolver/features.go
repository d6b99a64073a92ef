package resolver

import (
	"strconv"

	"github.com/fraudwatch/sovereign-core/pkg/model"
	"github.com/fraudwatch/sovereign-core/pkg/scoring"
	"github.com/fraudwatch/sovereign-core/pkg/sv"
)

// buildFeatureSet computes the (mention, candidate) feature vector per
// spec §4.4. Every feature is omitted (left absent from the set) when
// one side lacks the input it needs, so Score's weighted average
// correctly ignores it rather than penalizing the candidate.
func buildFeatureSet(entityType model.EntityType, m, c entityContext) scoring.FeatureSet {
	fs := scoring.FeatureSet{}

	if identifierMatch(m.Identifiers, c.Identifiers) {
		fs.Set(scoring.FeatureIdentifierMatch, 1.0)
	}

	switch entityType {
	case model.EntityTypePerson:
		if m.NormalizedName != "" && c.NormalizedName != "" {
			fs.Set(scoring.FeatureNameJaroWinkler, sv.NameJaroWinkler(m.NormalizedName, c.NormalizedName))
			fs.Set(scoring.FeatureNameTokenJaccard, sv.NameTokenJaccard(m.NormalizedName, c.NormalizedName))
		}
		if m.BirthYear != 0 && c.BirthYear != 0 {
			fs.Set(scoring.FeatureBirthYearMatch, scoring.ExactMatch(strconv.Itoa(m.BirthYear), strconv.Itoa(c.BirthYear)))
		}
		if hasAddress(m.Address) && hasAddress(c.Address) {
			fs.Set(scoring.FeatureAddressSimilarity, sv.AddressSimilarity(m.Address, c.Address))
		}
		if m.Neighbors != nil && c.Neighbors != nil {
			fs.Set(scoring.FeatureNetworkOverlap, scoring.SetOverlap(m.Neighbors, c.Neighbors))
		}

	case model.EntityTypeCompany:
		if m.NormalizedName != "" && c.NormalizedName != "" {
			fs.Set(scoring.FeatureNameJaroWinkler, sv.NameJaroWinkler(m.NormalizedName, c.NormalizedName))
		}
		if hasAddress(m.Address) && hasAddress(c.Address) {
			fs.Set(scoring.FeatureAddressSimilarity, sv.AddressSimilarity(m.Address, c.Address))
		}
		if m.Neighbors != nil && c.Neighbors != nil {
			fs.Set(scoring.FeatureDirectorOverlap, scoring.SetOverlap(m.Neighbors, c.Neighbors))
		}

	case model.EntityTypeAddress:
		if hasAddress(m.Address) && hasAddress(c.Address) {
			fs.Set(scoring.FeaturePostalExact, scoring.ExactMatch(m.Address.PostalCode, c.Address.PostalCode))
			fs.Set(scoring.FeatureStreetJaroWinkler, sv.NameJaroWinkler(m.Address.Street, c.Address.Street))
			fs.Set(scoring.FeatureNumberExact, scoring.ExactMatch(m.Address.StreetNumber, c.Address.StreetNumber))
		}
	}

	return fs
}

func identifierMatch(a, b map[model.IdentifierType]string) bool {
	for idType, value := range a {
		if value == "" {
			continue
		}
		if other, ok := b[idType]; ok && other == value {
			return true
		}
	}
	return false
}

func hasAddress(a sv.ParsedAddress) bool {
	return a.PostalCode != "" || a.Street != ""
}
