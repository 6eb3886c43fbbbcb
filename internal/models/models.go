package models

// PrefixRecord is one route object returned by an IRR source. Fields emitted
// by the query tool are kept as-is; numbers are held as json.Number so they
// survive a decode/encode cycle unchanged.
type PrefixRecord map[string]any

// Prefix returns the record's prefix, or "" when absent.
func (p PrefixRecord) Prefix() string {
	s, _ := p["prefix"].(string)
	return s
}

// Source returns the IRR source that contributed the record.
func (p PrefixRecord) Source() string {
	s, _ := p["source"].(string)
	return s
}

// LookupResult maps the canonical ASN to the records found for it.
type LookupResult map[string][]PrefixRecord

// NewLookupResult returns a result holding records under asn. A nil slice is
// replaced with an empty one so the key always encodes as [].
func NewLookupResult(asn string, records []PrefixRecord) LookupResult {
	if records == nil {
		records = []PrefixRecord{}
	}
	return LookupResult{asn: records}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ReadinessResponse is returned by the readiness probe.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
