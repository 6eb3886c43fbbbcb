// Package irr validates the client-facing inputs of a prefix lookup: the
// Autonomous System Number and the set of Internet Routing Registry sources.
package irr

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxASN is the largest 32-bit ASN.
const MaxASN = 4294967295

// ASN is an Autonomous System Number that passed validation.
type ASN uint32

// String returns the canonical "AS<n>" form.
func (a ASN) String() string {
	return "AS" + strconv.FormatUint(uint64(a), 10)
}

// Range is an inclusive ASN interval.
type Range struct {
	Start uint32 `yaml:"start"`
	End   uint32 `yaml:"end"`
}

// Contains reports whether n lies in the range.
func (r Range) Contains(n uint32) bool {
	return r.Start <= n && n <= r.End
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// DefaultPrivateRanges are the 16-bit and 32-bit private use ranges.
var DefaultPrivateRanges = []Range{
	{Start: 64512, End: 65534},
	{Start: 4200000000, End: 4294967294},
}

// parseASN strips an optional case-insensitive "AS" prefix and parses the
// remainder as a base 10 integer.
func parseASN(input string) (int64, error) {
	numeric := input
	if len(numeric) >= 2 && strings.EqualFold(numeric[:2], "AS") {
		numeric = numeric[2:]
	}
	return strconv.ParseInt(numeric, 10, 64)
}
