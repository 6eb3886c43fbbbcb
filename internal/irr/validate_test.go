package irr

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func isPrivate(n uint64) bool {
	return (n >= 64512 && n <= 65534) || (n >= 4200000000 && n <= 4294967294)
}

func TestASN_Valid(t *testing.T) {
	v := Default()

	tests := []struct {
		input    string
		expected string
	}{
		{"AS15169", "AS15169"},
		{"15169", "AS15169"},
		{"as15169", "AS15169"},
		{"aS3356", "AS3356"},
		{"1", "AS1"},
		{"AS64511", "AS64511"},
		{"AS65535", "AS65535"},
		{"AS4199999999", "AS4199999999"},
		{"AS4294967295", "AS4294967295"},
		{"AS0015169", "AS15169"},
		{"AS+5", "AS5"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			asn, err := v.ASN(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, asn.String())
		})
	}
}

func TestASN_Invalid(t *testing.T) {
	v := Default()

	inputs := []string{
		"ASABC", "AS1.2", "AS-10", "AS0", "0", "",
		"AS", "64512", "AS65534", "4200000000", "AS4294967294",
		"AS4294967296", " AS15169", "AS 15169", "AS15169 ", "0x10", "AS1_000",
		"ASAS15169", "99999999999999999999",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := v.ASN(input)
			require.Error(t, err)

			var asnErr *InvalidASNError
			require.True(t, errors.As(err, &asnErr))
			assert.Equal(t, input, asnErr.Input)
			assert.Contains(t, err.Error(), "Invalid ASN format or value: '"+input+"'")
		})
	}
}

func TestASNProperties_PublicAccepted(t *testing.T) {
	v := Default()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Uint64Range(1, MaxASN).Filter(func(n uint64) bool { return !isPrivate(n) }).Draw(t, "n")
		prefix := rapid.SampledFrom([]string{"", "AS", "as", "As", "aS"}).Draw(t, "prefix")

		asn, err := v.ASN(fmt.Sprintf("%s%d", prefix, n))
		if err != nil {
			t.Fatalf("expected %s%d to be valid: %v", prefix, n, err)
		}
		if asn.String() != fmt.Sprintf("AS%d", n) {
			t.Fatalf("canonical form %q for %d", asn.String(), n)
		}
	})
}

func TestASNProperties_PrivateAndOutOfRangeRejected(t *testing.T) {
	v := Default()

	rapid.Check(t, func(t *rapid.T) {
		var n int64
		switch rapid.IntRange(0, 3).Draw(t, "kind") {
		case 0:
			n = rapid.Int64Range(64512, 65534).Draw(t, "private16")
		case 1:
			n = rapid.Int64Range(4200000000, 4294967294).Draw(t, "private32")
		case 2:
			n = rapid.Int64Range(-1<<40, 0).Draw(t, "nonpositive")
		default:
			n = rapid.Int64Range(MaxASN+1, 1<<62).Draw(t, "toolarge")
		}

		if _, err := v.ASN(fmt.Sprintf("AS%d", n)); err == nil {
			t.Fatalf("expected AS%d to be rejected", n)
		}
		if _, err := v.ASN(fmt.Sprintf("%d", n)); err == nil {
			t.Fatalf("expected %d to be rejected", n)
		}
	})
}

func TestSources_Empty(t *testing.T) {
	v := Default()

	got, err := v.Sources(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestSources_CanonicalSortedDeduplicated(t *testing.T) {
	v := Default()

	got, err := v.Sources([]string{"ripe", "LeVeL3", "RIPE", "radb"})
	require.NoError(t, err)
	assert.Equal(t, []string{"LEVEL3", "RADB", "RIPE"}, got)
}

func TestSources_Invalid(t *testing.T) {
	v := Default()

	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"single", []string{"BOGUS"}, []string{"BOGUS"}},
		{"mixed valid first", []string{"RIPE", "invalid"}, []string{"INVALID"}},
		{"mixed invalid first", []string{"INVALID", "RADB"}, []string{"INVALID"}},
		{"dedup and sort", []string{"zzz", "aaa", "ZZZ"}, []string{"AAA", "ZZZ"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Sources(tt.input)
			require.Error(t, err)

			var srcErr *InvalidSourcesError
			require.True(t, errors.As(err, &srcErr))
			assert.Equal(t, tt.expected, srcErr.Invalid)
			assert.Equal(t, DefaultSources, srcErr.Allowed)
			assert.Contains(t, err.Error(), "Invalid IRR source(s) provided: "+strings.Join(tt.expected, ", "))
			assert.Contains(t, err.Error(), "Allowed sources: AFRINIC, ALTDB, APNIC")
		})
	}
}

func TestSourcesProperties_OrderIndependent(t *testing.T) {
	v := Default()

	rapid.Check(t, func(t *rapid.T) {
		picked := rapid.SliceOfN(rapid.SampledFrom(DefaultSources), 1, 30).Draw(t, "sources")

		tokens := make([]string, len(picked))
		for i, s := range picked {
			if rapid.Bool().Draw(t, fmt.Sprintf("lower%d", i)) {
				s = strings.ToLower(s)
			}
			tokens[i] = s
		}

		first, err := v.Sources(tokens)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		seed := rapid.Int64().Draw(t, "seed")
		shuffled := append([]string(nil), tokens...)
		rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		second, err := v.Sources(shuffled)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assert.Equal(t, first, second)
		for i := 1; i < len(first); i++ {
			if first[i-1] >= first[i] {
				t.Fatalf("result not strictly sorted: %v", first)
			}
		}
		for _, s := range first {
			assert.Contains(t, DefaultSources, s)
		}
	})
}

func TestSourcesProperties_ReportsExactlyOffendingTokens(t *testing.T) {
	v := Default()

	rapid.Check(t, func(t *rapid.T) {
		good := rapid.SliceOf(rapid.SampledFrom(DefaultSources)).Draw(t, "good")
		bad := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,3}[0-9]{2}`), 1, 5).Draw(t, "bad")

		_, err := v.Sources(append(good, bad...))

		var srcErr *InvalidSourcesError
		if !errors.As(err, &srcErr) {
			t.Fatalf("expected InvalidSourcesError, got %v", err)
		}

		var want []string
		for _, b := range bad {
			want = append(want, strings.ToUpper(b))
		}
		want = sortedUniqueForTest(want)
		assert.Equal(t, want, srcErr.Invalid)
	})
}

func sortedUniqueForTest(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func TestSplitSources(t *testing.T) {
	assert.Equal(t, []string{"RIPE", "LEVEL3"}, SplitSources(" RIPE , LEVEL3 "))
	assert.Empty(t, SplitSources(","))
	assert.Empty(t, SplitSources(""))
	assert.Empty(t, SplitSources(" , ,  "))
	assert.Equal(t, []string{"radb"}, SplitSources("radb,,"))
}

func TestNewValidator(t *testing.T) {
	_, err := NewValidator(nil, DefaultPrivateRanges)
	assert.Error(t, err)

	_, err = NewValidator([]string{"RADB", " "}, nil)
	assert.Error(t, err)

	_, err = NewValidator([]string{"RADB"}, []Range{{Start: 10, End: 5}})
	assert.Error(t, err)

	v, err := NewValidator([]string{"radb", "RADB", "Ripe"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ripe", "radb"}, v.AllowedSources())

	got, err := v.Sources([]string{"RIPE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ripe"}, got)

	// No private ranges configured: 64512 is accepted.
	asn, err := v.ASN("64512")
	require.NoError(t, err)
	assert.Equal(t, "AS64512", asn.String())
}
