package search

import "unicode"

// QueryClass is the script class of a raw query.
type QueryClass int

const (
	// ClassLogographic: the query contains at least one Han character.
	ClassLogographic QueryClass = iota
	// ClassPhonetic: the query is kana only.
	ClassPhonetic
	// ClassAlphabetic: the query is Latin letters and whitespace only.
	ClassAlphabetic
	// ClassMixed: anything else.
	ClassMixed
)

// String returns the class name.
func (c QueryClass) String() string {
	switch c {
	case ClassLogographic:
		return "logographic"
	case ClassPhonetic:
		return "phonetic"
	case ClassAlphabetic:
		return "alphabetic"
	default:
		return "mixed"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c QueryClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// phonetic covers hiragana, katakana (with the prolonged sound mark and
// middle dot), katakana phonetic extensions and half-width katakana.
var phonetic = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3041, Hi: 0x309F, Stride: 1},
		{Lo: 0x30A0, Hi: 0x30FF, Stride: 1},
		{Lo: 0x31F0, Hi: 0x31FF, Stride: 1},
		{Lo: 0xFF65, Hi: 0xFF9F, Stride: 1},
	},
}

// Classify assigns query to a QueryClass. It is total: every string,
// including the empty string, gets a class.
func Classify(query string) QueryClass {
	allPhonetic := query != ""
	allAlphabetic := true
	letters := 0

	for _, r := range query {
		if unicode.Is(unicode.Han, r) {
			return ClassLogographic
		}
		if !unicode.Is(phonetic, r) {
			allPhonetic = false
		}
		switch {
		case unicode.IsSpace(r):
		case unicode.IsLetter(r) && unicode.Is(unicode.Latin, r):
			letters++
		default:
			allAlphabetic = false
		}
	}

	switch {
	case allPhonetic:
		return ClassPhonetic
	case allAlphabetic && letters > 0:
		return ClassAlphabetic
	default:
		return ClassMixed
	}
}
