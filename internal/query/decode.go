package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sagoresarker/irr-prefix-lookup/internal/models"
)

// ErrUndecodable means the tools ran but their output was not the expected
// JSON document.
var ErrUndecodable = errors.New("query output is not valid JSON")

// Decode parses the aggregated document. A missing or null key decodes to an
// empty record list; any other top level key is dropped.
func Decode(stdout, key string) (models.LookupResult, error) {
	var doc map[string]json.RawMessage
	if err := decodeStrict(stdout, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: top level value is null", ErrUndecodable)
	}

	var records []models.PrefixRecord
	if raw, ok := doc[key]; ok && !isNull(raw) {
		if err := decodeStrict(string(raw), &records); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUndecodable, key, err)
		}
	}
	return models.NewLookupResult(key, records), nil
}

// decodeStrict decodes exactly one JSON value from s, keeping numbers as
// json.Number and rejecting trailing data.
func decodeStrict(s string, v any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("unexpected data after JSON document")
	}
	return nil
}
