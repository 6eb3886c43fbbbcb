package irr

import (
	"errors"
	"strings"

	"github.com/sagoresarker/irr-prefix-lookup/internal/utils"
)

// DefaultSources is the canonical IRR allow-list.
var DefaultSources = []string{
	"AFRINIC", "ALTDB", "APNIC", "ARIN", "BELL", "LEVEL3", "NTTCOM",
	"RADB", "REACH", "RIPE", "RPKI", "SAVVIS", "TC",
}

// Validator checks lookup inputs against an immutable allow-list and set of
// private ASN ranges. It is safe for concurrent use.
type Validator struct {
	sources []string
	// canonical maps the uppercased form of each allowed source to its
	// configured spelling.
	canonical map[string]string
	ranges    []Range
}

// NewValidator builds a Validator. Source names keep the casing given here;
// matching against client input is case-insensitive.
func NewValidator(sources []string, privateRanges []Range) (*Validator, error) {
	if len(sources) == 0 {
		return nil, errors.New("irr source allow-list is empty")
	}

	canonical := make(map[string]string, len(sources))
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, errors.New("irr source allow-list contains a blank entry")
		}
		upper := strings.ToUpper(s)
		if _, dup := canonical[upper]; dup {
			continue
		}
		canonical[upper] = s
		names = append(names, s)
	}

	for _, r := range privateRanges {
		if r.Start > r.End {
			return nil, errors.New("private asn range " + r.String() + " is inverted")
		}
	}

	return &Validator{
		sources:   utils.SortedUnique(names),
		canonical: canonical,
		ranges:    append([]Range(nil), privateRanges...),
	}, nil
}

// Default returns a Validator over DefaultSources and DefaultPrivateRanges.
func Default() *Validator {
	v, err := NewValidator(DefaultSources, DefaultPrivateRanges)
	if err != nil {
		panic(err)
	}
	return v
}

// AllowedSources returns the sorted canonical allow-list.
func (v *Validator) AllowedSources() []string {
	return append([]string(nil), v.sources...)
}

// ASN validates input, accepting it with or without an "AS" prefix in any
// case. The canonical form is ASN.String().
func (v *Validator) ASN(input string) (ASN, error) {
	n, err := parseASN(input)
	if err != nil || n <= 0 || n > MaxASN {
		return 0, &InvalidASNError{Input: input}
	}
	for _, r := range v.ranges {
		if r.Contains(uint32(n)) {
			return 0, &InvalidASNError{Input: input}
		}
	}
	return ASN(n), nil
}

// Sources validates the requested IRR source tokens. An empty list is valid
// and yields an empty result. On success the canonical names are returned
// deduplicated and sorted, independent of input order.
func (v *Validator) Sources(tokens []string) ([]string, error) {
	if len(tokens) == 0 {
		return []string{}, nil
	}

	var invalid, valid []string
	for _, t := range tokens {
		upper := strings.ToUpper(t)
		name, ok := v.canonical[upper]
		if !ok {
			invalid = append(invalid, upper)
			continue
		}
		valid = append(valid, name)
	}

	if len(invalid) > 0 {
		return nil, &InvalidSourcesError{
			Invalid: utils.SortedUnique(invalid),
			Allowed: v.AllowedSources(),
		}
	}
	return utils.SortedUnique(valid), nil
}

// SplitSources parses the comma separated irr query parameter. Entries are
// trimmed and blank ones dropped, so ",," yields an empty list.
func SplitSources(raw string) []string {
	tokens := []string{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			tokens = append(tokens, item)
		}
	}
	return tokens
}
