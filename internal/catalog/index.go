package catalog

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"stockapi/internal/provider"
)

// Index is an in-memory full-text index over the builtin universe. It backs
// the search data-kind when every upstream provider is exhausted.
type Index struct {
	idx bleve.Index
}

type doc struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
}

func buildMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	text.Store = true
	text.Index = true
	docMapping.AddFieldMappingsAt("symbol", text)
	docMapping.AddFieldMappingsAt("name", text)
	docMapping.AddFieldMappingsAt("exchange", text)
	docMapping.AddFieldMappingsAt("type", text)
	m.AddDocumentMapping("_default", docMapping)
	return m
}

// NewIndex builds the index from the builtin entries. It lives purely in
// memory; nothing is written to disk.
func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	batch := idx.NewBatch()
	for _, e := range Builtin() {
		d := doc{Symbol: e.Symbol, Name: e.Name, Exchange: e.Exchange, Type: e.Type}
		if err := batch.Index(e.Symbol, d); err != nil {
			return nil, fmt.Errorf("index %s: %w", e.Symbol, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("index batch: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Search ranks builtin symbols against query: exact symbol matches first,
// then symbol prefixes, then name matches.
func (x *Index) Search(query string, limit int) []provider.SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	exact := bleve.NewTermQuery(q)
	exact.SetField("symbol")
	exact.SetBoost(10)

	prefix := bleve.NewPrefixQuery(q)
	prefix.SetField("symbol")
	prefix.SetBoost(5)

	nameMatch := bleve.NewMatchQuery(query)
	nameMatch.SetField("name")
	nameMatch.SetBoost(3)

	nameWild := bleve.NewWildcardQuery("*" + q + "*")
	nameWild.SetField("name")
	nameWild.SetBoost(1.5)

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(exact, prefix, nameMatch, nameWild))
	req.Fields = []string{"symbol", "name", "exchange", "type"}
	req.Size = limit

	res, err := x.idx.Search(req)
	if err != nil {
		return nil
	}

	out := make([]provider.SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, provider.SearchResult{
			Symbol:   fieldString(hit.Fields, "symbol"),
			Name:     fieldString(hit.Fields, "name"),
			Exchange: fieldString(hit.Fields, "exchange"),
			Type:     fieldString(hit.Fields, "type"),
		})
	}
	return out
}

func (x *Index) Close() error { return x.idx.Close() }

func fieldString(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}
