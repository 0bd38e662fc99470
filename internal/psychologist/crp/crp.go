// Package crp parses regional psychology council licence codes (CRP) into
// their canonical NUMBER-STATE form.
package crp

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// UnknownRegion is emitted when the region code is not in the lookup table.
// Callers decide whether an unresolved region is acceptable.
const UnknownRegion = "XX"

// regionCodeLen is the number of leading characters holding the region code.
const regionCodeLen = 2

var regions = map[string]string{
	"01": "SP",
	"02": "RJ",
	"03": "MG",
	"04": "RS",
	"05": "PR",
	"06": "DF",
	"07": "BA",
	"08": "PE",
	"09": "SC",
	"10": "GO",
}

var strictPattern = regexp.MustCompile(`^\d{2}/\d{5}$`)

// Identifier is a parsed licence code. The zero value means the input was
// empty or too short to carry both a region and a number.
type Identifier struct {
	Number string `json:"number"`
	Region string `json:"region"`
}

// String renders the canonical "{number}-{region}" form, or "" for the zero
// value.
func (i Identifier) String() string {
	if i.IsZero() {
		return ""
	}
	return i.Number + "-" + i.Region
}

func (i Identifier) IsZero() bool {
	return i.Number == "" && i.Region == ""
}

// Resolved reports whether the identifier has a number and a known region.
func (i Identifier) Resolved() bool {
	return i.Number != "" && i.Region != "" && i.Region != UnknownRegion
}

// Normalize strips separators and whitespace, reads the first two characters
// as the region code and the rest as the registration number. It never fails.
func Normalize(raw string) Identifier {
	compact := strings.Map(func(r rune) rune {
		if r == '/' || r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	runes := []rune(compact)
	if len(runes) <= regionCodeLen {
		return Identifier{}
	}

	region, ok := regions[string(runes[:regionCodeLen])]
	if !ok {
		region = UnknownRegion
	}
	return Identifier{
		Number: string(runes[regionCodeLen:]),
		Region: region,
	}
}

// MatchesStrict reports whether raw has the exact "dd/ddddd" layout used when
// strict licence validation is configured.
func MatchesStrict(raw string) bool {
	return strictPattern.MatchString(strings.TrimSpace(raw))
}

// Region is one entry of the lookup table.
type Region struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// Regions lists the lookup table ordered by code.
func Regions() []Region {
	out := make([]Region, 0, len(regions))
	for code, state := range regions {
		out = append(out, Region{Code: code, State: state})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
