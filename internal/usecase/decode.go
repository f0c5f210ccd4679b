package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

// Envelope schemas pin the outer shape: a list of objects, bare or under the
// variant's list field. Field-level problems are handled record by record during
// normalization so one bad record never sinks the batch.
const (
	searchEnvelopeSchema = `{
  "anyOf": [
    {"type": "array", "items": {"type": "object"}},
    {"type": "object", "required": ["scholarships"], "properties": {"scholarships": {"type": "array", "items": {"type": "object"}}}},
    {"type": "object", "required": ["recommendations"], "properties": {"recommendations": {"type": "array", "items": {"type": "object"}}}}
  ]
}`
	catalogEnvelopeSchema = `{
  "anyOf": [
    {"type": "array", "items": {"type": "object"}},
    {"type": "object", "required": ["recommendations"], "properties": {"recommendations": {"type": "array", "items": {"type": "object"}}}},
    {"type": "object", "required": ["scholarships"], "properties": {"scholarships": {"type": "array", "items": {"type": "object"}}}}
  ]
}`
)

var (
	searchSchema  = mustSchema(searchEnvelopeSchema)
	catalogSchema = mustSchema(catalogEnvelopeSchema)
)

func mustSchema(s string) *gojsonschema.Schema {
	sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid envelope schema: %v", err))
	}
	return sch
}

// listFields is the lookup order for the record list inside an object envelope.
var (
	searchListFields  = []string{"scholarships", "recommendations"}
	catalogListFields = []string{"recommendations", "scholarships"}
)

// DecodeModelReply runs both parse stages over a raw model reply: lenient
// extraction of candidate JSON spans, then envelope validation of each in turn.
// The first span with a valid envelope wins, so a bracketed aside such as "[1]"
// ahead of the payload is passed over. No span at all wraps ErrNoJSON; spans
// that all fail the envelope wrap ErrFormat only, reporting the first failure.
// Both satisfy errors.Is(err, domain.ErrFormat).
func DecodeModelReply(text string, variant domain.Variant) ([]json.RawMessage, error) {
	spans := JSONSpans(text)
	if len(spans) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrFormat, domain.ErrNoJSON)
	}
	schema, fields := searchSchema, searchListFields
	if variant == domain.VariantCatalog {
		schema, fields = catalogSchema, catalogListFields
	}
	var first error
	for _, span := range spans {
		items, err := decodeEnvelope(span, schema, fields)
		if err == nil {
			return items, nil
		}
		if first == nil {
			first = err
		}
	}
	return nil, first
}

func decodeEnvelope(span string, schema *gojsonschema.Schema, fields []string) ([]json.RawMessage, error) {
	res, err := schema.Validate(gojsonschema.NewStringLoader(span))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: unexpected shape: %s", domain.ErrFormat, strings.Join(msgs, "; "))
	}

	trimmed := strings.TrimSpace(span)
	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrFormat, err)
		}
		return items, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}
	for _, f := range fields {
		raw, ok := obj[f]
		if !ok {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrFormat, f, err)
		}
		return items, nil
	}
	return nil, fmt.Errorf("%w: no record list", domain.ErrFormat)
}
