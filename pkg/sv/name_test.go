package sv

import "testing"

func TestNormalizeCompanyName(t *testing.T) {
	cases := []struct {
		name           string
		input          string
		wantNormalized string
		wantLegalForm  string
	}{
		{
			name:           "spelled-out legal form with publ marker",
			input:          "Volvo Aktiebolag (publ)",
			wantNormalized: "VOLVO",
			wantLegalForm:  "AB",
		},
		{
			name:           "already-abbreviated legal form",
			input:          "Volvo AB",
			wantNormalized: "VOLVO",
			wantLegalForm:  "AB",
		},
		{
			name:           "likvidation status marker stripped",
			input:          "Exempel Handelsbolag I Likvidation",
			wantNormalized: "EXEMPEL",
			wantLegalForm:  "HB",
		},
		{
			name:           "ampersand preserved, other punctuation removed",
			input:          "Nord & Syd, Kommanditbolag.",
			wantNormalized: "NORD & SYD",
			wantLegalForm:  "KB",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotNormalized, gotLegalForm := NormalizeCompanyName(tc.input)
			if gotNormalized != tc.wantNormalized {
				t.Errorf("normalized = %q, want %q", gotNormalized, tc.wantNormalized)
			}
			if gotLegalForm != tc.wantLegalForm {
				t.Errorf("legalForm = %q, want %q", gotLegalForm, tc.wantLegalForm)
			}
		})
	}
}

func TestCompanyNameSimilarity(t *testing.T) {
	a, _ := NormalizeCompanyName("Volvo Aktiebolag (publ)")
	b, _ := NormalizeCompanyName("Volvo AB")

	if got := CompanyNameSimilarity(a, b); got != 1.0 {
		t.Errorf("similarity(%q, %q) = %v, want 1.0", a, b, got)
	}

	c, _ := NormalizeCompanyName("Scania Aktiebolag")
	if got := CompanyNameSimilarity(a, c); got >= 0.5 {
		t.Errorf("similarity(%q, %q) = %v, want well below 0.5", a, c, got)
	}
}

func TestNameJaroWinklerAndTokenJaccard(t *testing.T) {
	if got := NameJaroWinkler("ANDERS ANDERSSON", "ANDERS ANDERSSON"); got != 1.0 {
		t.Errorf("NameJaroWinkler of identical strings = %v, want 1.0", got)
	}
	if got := NameTokenJaccard("ANDERS ANDERSSON", "ANDERSSON ANDERS"); got != 1.0 {
		t.Errorf("NameTokenJaccard of reordered tokens = %v, want 1.0", got)
	}
}
