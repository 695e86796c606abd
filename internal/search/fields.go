package search

import "github.com/Aman-CERP/lexsearch/internal/lexicon"

// FieldsFor returns the lexicon fields searched for a query class, in the
// order their hits are discovered.
func FieldsFor(class QueryClass) []lexicon.Field {
	switch class {
	case ClassLogographic:
		return []lexicon.Field{lexicon.FieldSpelling}
	case ClassPhonetic:
		return []lexicon.Field{lexicon.FieldReading}
	case ClassAlphabetic:
		return []lexicon.Field{lexicon.FieldGloss}
	default:
		return []lexicon.Field{lexicon.FieldSpelling, lexicon.FieldReading, lexicon.FieldGloss}
	}
}
