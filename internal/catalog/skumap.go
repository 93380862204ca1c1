package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ParseSkuMap reads a SHOPIFY_SKU_MAP document. Values are either a variant
// id (number or numeric string) or an object with variantId, productId, title.
func ParseSkuMap(raw []byte) ([]Mapping, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("sku map is not a JSON object: %w", err)
	}

	out := make([]Mapping, 0, len(doc))
	for sku, v := range doc {
		m, err := parseEntry(sku, v)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func parseEntry(sku string, v json.RawMessage) (Mapping, error) {
	m := Mapping{SKU: sku}

	var entry struct {
		VariantID json.RawMessage `json:"variantId"`
		ProductID json.RawMessage `json:"productId"`
		Title     string          `json:"title"`
	}
	if len(v) > 0 && v[0] == '{' {
		if err := json.Unmarshal(v, &entry); err != nil {
			return m, fmt.Errorf("sku %s: %w", sku, err)
		}
		m.Title = entry.Title
		m.ProductID = unquote(entry.ProductID)
		v = entry.VariantID
	}

	id, err := strconv.ParseInt(unquote(v), 10, 64)
	if err != nil || id <= 0 {
		return m, fmt.Errorf("sku %s: invalid variant id %s", sku, string(v))
	}
	m.VariantID = id
	return m, nil
}

// unquote accepts both 123 and "123".
func unquote(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(v))
}

// MarshalSkuMap writes mappings in the object form ParseSkuMap reads.
func MarshalSkuMap(mappings []Mapping) ([]byte, error) {
	type entry struct {
		VariantID int64  `json:"variantId"`
		ProductID string `json:"productId,omitempty"`
		Title     string `json:"title,omitempty"`
	}
	doc := make(map[string]entry, len(mappings))
	for _, m := range mappings {
		doc[m.SKU] = entry{VariantID: m.VariantID, ProductID: m.ProductID, Title: m.Title}
	}
	return json.MarshalIndent(doc, "", "  ")
}
