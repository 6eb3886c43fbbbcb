// Package query turns a validated lookup into invocations of the bgpq4
// route-object query tool, runs them under a hard timeout and decodes the
// aggregated JSON they produce.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/sagoresarker/irr-prefix-lookup/internal/irr"
)

// ErrEmptyPlan is returned by NewPlan when no IRR source was given.
var ErrEmptyPlan = errors.New("query plan needs at least one irr source")

const (
	// tagFilter keeps a bgpq4 document only when it carries the ASN key and
	// stamps every route entry with the source that produced it.
	tagFilter = `select(.[$asn] != null) | .[$asn] |= map(. + {source: $src})`
	// aggregateFilter flattens the slurped per-source documents into a single
	// object keyed by the ASN. An empty input yields an empty array.
	aggregateFilter = `{($asn): (map(.[$asn]) | flatten)}`
	// exactMarker is dropped from the output, it annotates exact-length route
	// objects and is not part of a prefix record.
	exactMarker = "exact"
)

// Tools names the external executables and the IRR server they talk to.
type Tools struct {
	BGPQ4 string
	JQ    string
	Egrep string
	Shell string
	// Host is passed to bgpq4 as -h when set; bgpq4 uses its own default
	// (whois.radb.net) otherwise.
	Host string
}

// DefaultTools resolves every tool through PATH.
func DefaultTools() Tools {
	return Tools{
		BGPQ4: "bgpq4",
		JQ:    "jq",
		Egrep: "egrep",
		Shell: "/bin/sh",
	}
}

// Query is a single bgpq4 invocation scoped to one IRR source.
type Query struct {
	ASN    irr.ASN
	Source string
}

// Args returns the bgpq4 argument vector: IPv4 route objects in JSON, named
// after the ASN, from Source only.
func (q Query) Args(host string) []string {
	asn := q.ASN.String()
	args := make([]string, 0, 9)
	if host != "" {
		args = append(args, "-h", host)
	}
	return append(args, "-S", q.Source, "-4", "-j", "-l", asn, asn)
}

// Plan is the ordered set of queries for one lookup request.
type Plan struct {
	ASN     irr.ASN
	Queries []Query
}

// NewPlan builds one query per source, in the order given.
func NewPlan(asn irr.ASN, sources []string) (*Plan, error) {
	if len(sources) == 0 {
		return nil, ErrEmptyPlan
	}
	p := &Plan{ASN: asn, Queries: make([]Query, 0, len(sources))}
	for _, s := range sources {
		p.Queries = append(p.Queries, Query{ASN: asn, Source: s})
	}
	return p, nil
}

// Key is the top level key of the aggregated document.
func (p *Plan) Key() string {
	return p.ASN.String()
}

// Sources lists the IRR sources covered by the plan.
func (p *Plan) Sources() []string {
	sources := make([]string, len(p.Queries))
	for i, q := range p.Queries {
		sources[i] = q.Source
	}
	return sources
}

// Pipeline renders the plan as one shell command. Segments run one after the
// other inside a subshell so their output reaches the final jq as a single
// stream. Every dynamic value is quoted on its own.
func (p *Plan) Pipeline(t Tools) string {
	asn := shellescape.Quote(p.Key())
	bgpq4 := shellescape.Quote(t.BGPQ4)
	jq := shellescape.Quote(t.JQ)
	egrep := shellescape.Quote(t.Egrep)

	var host string
	if t.Host != "" {
		host = " -h " + shellescape.Quote(t.Host)
	}

	segments := make([]string, 0, len(p.Queries))
	for _, q := range p.Queries {
		src := shellescape.Quote(q.Source)
		segments = append(segments, fmt.Sprintf(
			"%s%s -S %s -4 -j -l %s %s 2>/dev/null | %s --arg src %s --arg asn %s %s | %s -v %s",
			bgpq4, host, src, asn, asn,
			jq, src, asn, shellescape.Quote(tagFilter),
			egrep, exactMarker,
		))
	}

	return fmt.Sprintf("( %s ) | %s -s --arg asn %s %s",
		strings.Join(segments, " ; "), jq, asn, shellescape.Quote(aggregateFilter))
}
