package blocking

import "testing"

func TestPhoneticKey(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		same bool
	}{
		{"svensson variants", "SVENSSON", "SVENSON", true},
		{"johansson variants", "JOHANSSON", "JOHANSON", true},
		{"unrelated names", "ANDERSSON", "LINDQVIST", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ka, kb := PhoneticKey(tc.a), PhoneticKey(tc.b)
			if (ka == kb) != tc.same {
				t.Errorf("PhoneticKey(%q)=%q PhoneticKey(%q)=%q, want same=%v", tc.a, ka, tc.b, kb, tc.same)
			}
		})
	}
}

func TestPhoneticKeyEmpty(t *testing.T) {
	if got := PhoneticKey(""); got != "" {
		t.Errorf("PhoneticKey(\"\") = %q, want empty", got)
	}
}
