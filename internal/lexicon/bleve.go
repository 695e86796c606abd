package lexicon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/lexsearch/internal/textfold"
)

const (
	// TermsTokenizerName splits folded lexicon values the same way the
	// SQLite index does.
	TermsTokenizerName = "lexicon_terms"

	// TermsAnalyzerName is the analyzer applied to the terms field.
	TermsAnalyzerName = "lexicon_terms_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(TermsTokenizerName, termsTokenizerConstructor)
}

// BleveIndex implements Indexer with a Bleve index. One document per
// field value; documents sort by insertion sequence.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// Verify interface implementation
var _ Indexer = (*BleveIndex)(nil)

// bleveDocument is the indexed form of one field value.
type bleveDocument struct {
	Field string  `json:"field"`
	Terms string  `json:"terms"`
	Value string  `json:"value"`
	Seq   float64 `json:"seq"`
}

// NewBleveIndex opens or creates a Bleve index at path.
// If path is empty, the index lives in memory.
func NewBleveIndex(path string) (*BleveIndex, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil {
			// The index is derived data; drop it and start over.
			slog.Warn("bleve_index_open_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("bleve index unusable and cannot be removed: %w (original: %v)", removeErr, err)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	return &BleveIndex{index: idx, path: path}, nil
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(TermsAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": TermsTokenizerName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	fieldMapping := bleve.NewTextFieldMapping()
	fieldMapping.Analyzer = keyword.Name
	fieldMapping.Store = false

	termsMapping := bleve.NewTextFieldMapping()
	termsMapping.Analyzer = TermsAnalyzerName
	termsMapping.Store = false

	valueMapping := bleve.NewTextFieldMapping()
	valueMapping.Index = false
	valueMapping.Store = true

	seqMapping := bleve.NewNumericFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("field", fieldMapping)
	doc.AddFieldMappingsAt("terms", termsMapping)
	doc.AddFieldMappingsAt("value", valueMapping)
	doc.AddFieldMappingsAt("seq", seqMapping)

	indexMapping.DefaultMapping = doc
	indexMapping.DefaultAnalyzer = TermsAnalyzerName
	return indexMapping, nil
}

// Rebuild replaces every document with the values of entries.
func (b *BleveIndex) Rebuild(ctx context.Context, entries []Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errStoreClosed()
	}

	ids, err := b.allIDs(ctx)
	if err != nil {
		return err
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}

	seq := 0
	for _, e := range entries {
		for _, f := range AllFields {
			for _, v := range e.Values(f) {
				doc := bleveDocument{
					Field: f.String(),
					Terms: strings.Join(textfold.IndexTerms(v, f == FieldGloss), " "),
					Value: v,
					Seq:   float64(seq),
				}
				if err := batch.Index(docID(f, e.ID, seq), doc); err != nil {
					return fmt.Errorf("failed to index %s for entry %d: %w", f, e.ID, err)
				}
				seq++
			}
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// FindIndexed implements Indexer: every term must match, prefix terms by
// prefix and the rest exactly.
func (b *BleveIndex) FindIndexed(ctx context.Context, field Field, q string) ([]Match, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errStoreClosed()
	}

	terms, prefix := textfold.ParseWildcardQuery(q)
	if len(terms) == 0 {
		return []Match{}, nil
	}

	fieldQuery := bleve.NewTermQuery(field.String())
	fieldQuery.SetField("field")
	conjuncts := []query.Query{fieldQuery}
	for i, t := range terms {
		if prefix[i] {
			pq := bleve.NewPrefixQuery(t)
			pq.SetField("terms")
			conjuncts = append(conjuncts, pq)
		} else {
			tq := bleve.NewTermQuery(t)
			tq.SetField("terms")
			conjuncts = append(conjuncts, tq)
		}
	}

	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(conjuncts...), MaxIndexedMatches, 0, false)
	req.Fields = []string{"value"}
	req.SortBy([]string{"seq"})

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	matches := make([]Match, 0, len(res.Hits))
	for _, hit := range res.Hits {
		_, id, err := parseDocID(hit.ID)
		if err != nil {
			return nil, err
		}
		value, _ := hit.Fields["value"].(string)
		matches = append(matches, Match{EntryID: id, Value: value})
	}
	return matches, nil
}

// Count returns the number of indexed values.
func (b *BleveIndex) Count() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, errStoreClosed()
	}
	n, err := b.index.DocCount()
	return int(n), err
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

// allIDs lists every document ID. Caller holds b.mu.
func (b *BleveIndex) allIDs(ctx context.Context) ([]string, error) {
	count, err := b.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// docID encodes field/entry/seq, e.g. "gloss/42/7".
func docID(field Field, id EntryID, seq int) string {
	return field.String() + "/" + formatID(id) + "/" + strconv.Itoa(seq)
}

func parseDocID(s string) (Field, EntryID, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return 0, 0, fmt.Errorf("malformed document id: %q", s)
	}
	field, err := ParseField(parts[0])
	if err != nil {
		return 0, 0, err
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed document id %q: %w", s, err)
	}
	return field, EntryID(id), nil
}

func termsTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &termsTokenizer{}, nil
}

// termsTokenizer implements analysis.Tokenizer over textfold spans.
type termsTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *termsTokenizer) Tokenize(input []byte) analysis.TokenStream {
	spans := textfold.Spans(string(input))
	stream := make(analysis.TokenStream, 0, len(spans))
	for i, sp := range spans {
		stream = append(stream, &analysis.Token{
			Term:     []byte(sp.Term),
			Start:    sp.Start,
			End:      sp.End,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return stream
}
