// Package scoring combines per-candidate feature values into the
// single resolution score the resolver thresholds against. The
// package itself is pure: callers compute each feature's raw value
// (via pkg/sv for string/address similarity, via the store for
// network overlap) and hand in a FeatureSet; Score never touches the
// network or the store.
package scoring

import "github.com/fraudwatch/sovereign-core/internal/config"

// Feature names match the keys of CoreConfig.FeatureWeights so a
// deployment can retune weights without a code change.
const (
	FeatureIdentifierMatch   = "identifier_match"
	FeatureNameJaroWinkler   = "name_jaro_winkler"
	FeatureNameTokenJaccard  = "name_token_jaccard"
	FeatureBirthYearMatch    = "birth_year_match"
	FeatureAddressSimilarity = "address_similarity"
	FeatureNetworkOverlap    = "network_overlap"
	FeatureDirectorOverlap   = "director_overlap"
	FeaturePostalExact       = "postal_exact"
	FeatureStreetJaroWinkler = "street_jaro_winkler"
	FeatureNumberExact       = "number_exact"
)

// FeatureSet holds the present/absent feature values for one
// (mention, candidate) pair. A feature whose key is absent was not
// computable (e.g. no birth year on either side) and is omitted from
// both the numerator and denominator of the weighted average, per
// spec.
type FeatureSet map[string]float64

// Set records a feature's raw [0,1] value.
func (f FeatureSet) Set(name string, value float64) {
	f[name] = value
}

// Score computes the weighted blend of fs against weights. If
// identifier_match is present and equals 1.0, the match is
// definitive and the function returns 0.99 immediately, skipping
// every other feature. Otherwise it returns
// Σ(feature·weight)/Σ(weight) over present features, or 0 if no
// feature is present.
func Score(fs FeatureSet, weights map[string]float64) float64 {
	if v, ok := fs[FeatureIdentifierMatch]; ok && v == 1.0 {
		return 0.99
	}

	var numerator, denominator float64
	for name, value := range fs {
		w, ok := weights[name]
		if !ok {
			continue
		}
		numerator += value * w
		denominator += w
	}
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// WeightsFor returns the weight table for entityType out of cfg,
// falling back to an empty table (every feature ignored, score 0) for
// an unrecognized type rather than panicking.
func WeightsFor(cfg config.FeatureWeights, entityType string) map[string]float64 {
	switch entityType {
	case "PERSON":
		return cfg.Person
	case "COMPANY":
		return cfg.Company
	case "ADDRESS":
		return cfg.Address
	default:
		return nil
	}
}
