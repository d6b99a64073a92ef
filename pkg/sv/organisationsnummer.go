package sv

import (
	"strconv"
	"strings"
)

// OrganisationsnummerType classifies the legal form implied by an
// organisationsnummer's leading digit.
type OrganisationsnummerType string

const (
	OrgTypeEstate              OrganisationsnummerType = "ESTATE"
	OrgTypeStateOrMunicipal    OrganisationsnummerType = "STATE_OR_MUNICIPAL"
	OrgTypePartnership         OrganisationsnummerType = "PARTNERSHIP"
	OrgTypeLimitedPartnership  OrganisationsnummerType = "LIMITED_PARTNERSHIP"
	OrgTypeEconomicAssociation OrganisationsnummerType = "ECONOMIC_ASSOCIATION_OR_FOUNDATION"
	OrgTypeNonProfit           OrganisationsnummerType = "NON_PROFIT_OR_FOUNDATION"
	OrgTypeForeign             OrganisationsnummerType = "FOREIGN"
	OrgTypeUnknown             OrganisationsnummerType = "UNKNOWN"
)

// OrganisationsnummerResult is the outcome of parsing a Swedish
// organization identifier.
type OrganisationsnummerResult struct {
	Valid        bool
	Normalized   string // 10 digits, no separator
	Display      string // XXXXXX-XXXX
	Type         OrganisationsnummerType
	Aktiebolag   bool
	ErrorReason  string
}

// ParseOrganisationsnummer accepts a 10-digit organisationsnummer,
// optionally prefixed with "16" (the VAT-style century marker) and
// with separators, validates its Luhn check digit and classifies its
// legal form.
func ParseOrganisationsnummer(input string) OrganisationsnummerResult {
	digits := onlyDigits(input)
	if len(digits) == 12 && strings.HasPrefix(digits, "16") {
		digits = digits[2:]
	}
	if len(digits) != 10 {
		return OrganisationsnummerResult{ErrorReason: "organisationsnummer must have 10 digits"}
	}

	group, err := strconv.Atoi(digits[2:4])
	if err != nil {
		return OrganisationsnummerResult{ErrorReason: "non-numeric group digits"}
	}
	if group < 20 {
		return OrganisationsnummerResult{ErrorReason: "digits 3-4 below 20: this is a personnummer, not an organisationsnummer"}
	}

	checkDigit := int(digits[9] - '0')
	if luhnCheckDigit(digits[0:9]) != checkDigit {
		return OrganisationsnummerResult{ErrorReason: "Luhn check digit mismatch"}
	}

	firstDigit := digits[0]

	return OrganisationsnummerResult{
		Valid:      true,
		Normalized: digits,
		Display:    digits[0:6] + "-" + digits[6:10],
		Type:       classifyOrgType(firstDigit),
		// The "group number" (digits 3-4) falling in 56-99 alongside a
		// leading 5 is the heuristic marker for aktiebolag.
		Aktiebolag: firstDigit == '5' && group >= 56 && group <= 99,
	}
}

func classifyOrgType(firstDigit byte) OrganisationsnummerType {
	switch firstDigit {
	case '1':
		return OrgTypeEstate
	case '2':
		return OrgTypeStateOrMunicipal
	case '5':
		return OrgTypePartnership
	case '6':
		return OrgTypeLimitedPartnership
	case '7':
		return OrgTypeEconomicAssociation
	case '8':
		return OrgTypeNonProfit
	case '9':
		return OrgTypeForeign
	default:
		return OrgTypeUnknown
	}
}
