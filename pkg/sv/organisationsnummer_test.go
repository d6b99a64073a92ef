package sv

import "testing"

func TestParseOrganisationsnummer(t *testing.T) {
	cases := []struct {
		name           string
		input          string
		wantValid      bool
		wantType       OrganisationsnummerType
		wantAktiebolag bool
		wantDisplay    string
	}{
		{
			name:           "valid aktiebolag",
			input:          "5561234567",
			wantValid:      true,
			wantType:       OrgTypePartnership,
			wantAktiebolag: true,
			wantDisplay:    "556123-4567",
		},
		{
			name:      "16-prefixed VAT form",
			input:     "16556123-4567",
			wantValid: true,
			wantType:  OrgTypePartnership,
		},
		{
			name:      "group digits below 20 rejected as a personnummer",
			input:     "5501014567",
			wantValid: false,
		},
		{
			name:      "wrong check digit rejected",
			input:     "5561234568",
			wantValid: false,
		},
		{
			name:      "wrong length rejected",
			input:     "12345",
			wantValid: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseOrganisationsnummer(tc.input)
			if got.Valid != tc.wantValid {
				t.Fatalf("Valid = %v, want %v (reason: %s)", got.Valid, tc.wantValid, got.ErrorReason)
			}
			if !tc.wantValid {
				return
			}
			if got.Type != tc.wantType {
				t.Errorf("Type = %s, want %s", got.Type, tc.wantType)
			}
			if tc.wantDisplay != "" && got.Display != tc.wantDisplay {
				t.Errorf("Display = %s, want %s", got.Display, tc.wantDisplay)
			}
			if got.Aktiebolag != tc.wantAktiebolag {
				t.Errorf("Aktiebolag = %v, want %v", got.Aktiebolag, tc.wantAktiebolag)
			}
		})
	}
}

func TestClassifyOrgType(t *testing.T) {
	cases := map[byte]OrganisationsnummerType{
		'1': OrgTypeEstate,
		'2': OrgTypeStateOrMunicipal,
		'5': OrgTypePartnership,
		'6': OrgTypeLimitedPartnership,
		'7': OrgTypeEconomicAssociation,
		'8': OrgTypeNonProfit,
		'9': OrgTypeForeign,
		'3': OrgTypeUnknown,
	}
	for digit, want := range cases {
		if got := classifyOrgType(digit); got != want {
			t.Errorf("classifyOrgType(%c) = %s, want %s", digit, got, want)
		}
	}
}
