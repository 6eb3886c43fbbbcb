package irr

import (
	"fmt"
	"strings"
)

// InvalidASNError is returned when an ASN fails parsing, range or privacy checks.
type InvalidASNError struct {
	Input string
}

func (e *InvalidASNError) Error() string {
	return fmt.Sprintf("Invalid ASN format or value: '%s'. Must be a positive 32-bit non-private ASN.", e.Input)
}

// InvalidSourcesError lists the requested IRR sources outside the allow-list.
type InvalidSourcesError struct {
	// Invalid holds the offending tokens, uppercased, deduplicated and sorted.
	Invalid []string
	// Allowed is the sorted canonical allow-list.
	Allowed []string
}

func (e *InvalidSourcesError) Error() string {
	return fmt.Sprintf("Invalid IRR source(s) provided: %s. Allowed sources: %s",
		strings.Join(e.Invalid, ", "), strings.Join(e.Allowed, ", "))
}
