package blocking

import "strings"

// soundexCode maps a letter to its Soundex digit class. Vowels and
// H/W/Y are unclassed and simply dropped after the first letter.
var soundexCode = map[byte]byte{
	'B': '1', 'F': '1', 'P': '1', 'V': '1',
	'C': '2', 'G': '2', 'J': '2', 'K': '2', 'Q': '2', 'S': '2', 'X': '2', 'Z': '2',
	'D': '3', 'T': '3',
	'L': '4',
	'M': '5', 'N': '5',
	'R': '6',
}

// PhoneticKey returns a coarse phonetic fingerprint of name, used to
// bucket entities whose names sound alike despite differing in
// spelling or transcription (e.g. "Svensson" vs "Svenson"). No
// metaphone/soundex library is available in this module's dependency
// set, so this is a plain Soundex implementation operating on the
// already-accent-stripped, uppercased form a caller passes in.
func PhoneticKey(name string) string {
	letters := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			letters = append(letters, c)
		} else if c >= 'a' && c <= 'z' {
			letters = append(letters, c-32)
		}
	}
	if len(letters) == 0 {
		return ""
	}

	code := []byte{letters[0]}
	prev := soundexCode[letters[0]]
	for _, c := range letters[1:] {
		d, ok := soundexCode[c]
		if !ok {
			prev = 0 // vowel/H/W/Y resets adjacency so a repeated digit after it still counts
			continue
		}
		if d != prev {
			code = append(code, d)
		}
		prev = d
		if len(code) == 4 {
			break
		}
	}
	for len(code) < 4 {
		code = append(code, '0')
	}
	return strings.ToUpper(string(code))
}
