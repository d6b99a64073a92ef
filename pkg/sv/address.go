package sv

import (
	"regexp"
	"strings"

	"github.com/xrash/smetrics"
)

// ParsedAddress is the normalized decomposition of a Swedish postal
// address.
type ParsedAddress struct {
	Street       string
	StreetNumber string
	Entrance     string
	PostalCode   string
	City         string
}

var streetAbbreviations = []struct {
	suffix string
	abbr   string
}{
	{"GATAN", "G"},
	{"VAGEN", "V"},
	{"ALLEN", "A"},
	{"STIGEN", "ST"},
	{"PLAN", "PL"},
	{"TORG", "T"},
	{"BACKE", "B"},
}

var (
	postalCodeRe = regexp.MustCompile(`^(\d{3})\s?(\d{2})$`)
	streetLineRe = regexp.MustCompile(`^(.+?)\s+(\d+)\s*([A-Za-z]?)$`)
)

// NormalizeAddress parses a free-form street line, postal code and
// city into their normalized components. The street-type suffix (e.g.
// "GATAN") is abbreviated per the standard Swedish table.
func NormalizeAddress(streetLine, postalCode, city string) ParsedAddress {
	street := strings.ToUpper(strings.TrimSpace(stripAccents(streetLine)))
	number, entrance := "", ""

	if m := streetLineRe.FindStringSubmatch(street); m != nil {
		street = strings.TrimSpace(m[1])
		number = m[2]
		entrance = strings.ToUpper(m[3])
	}
	street = abbreviateStreetType(street)

	normalizedPostal := postalCode
	if m := postalCodeRe.FindStringSubmatch(strings.TrimSpace(postalCode)); m != nil {
		normalizedPostal = m[1] + m[2]
	}

	return ParsedAddress{
		Street:       street,
		StreetNumber: number,
		Entrance:     entrance,
		PostalCode:   normalizedPostal,
		City:         strings.ToUpper(strings.TrimSpace(stripAccents(city))),
	}
}

func abbreviateStreetType(street string) string {
	for _, sa := range streetAbbreviations {
		if strings.HasSuffix(street, sa.suffix) {
			return strings.TrimSuffix(street, sa.suffix) + sa.abbr
		}
	}
	return street
}

// AddressSimilarity scores two normalized addresses via a weighted
// blend of exact postal-code match, street-name Jaro-Winkler
// similarity, and exact street-number match.
func AddressSimilarity(a, b ParsedAddress) float64 {
	postalScore := 0.0
	if a.PostalCode != "" && a.PostalCode == b.PostalCode {
		postalScore = 1.0
	}
	numberScore := 0.0
	if a.StreetNumber != "" && a.StreetNumber == b.StreetNumber {
		numberScore = 1.0
	}
	streetScore := smetrics.JaroWinkler(a.Street, b.Street, 0.7, 4)
	return 0.3*postalScore + 0.5*streetScore + 0.2*numberScore
}
