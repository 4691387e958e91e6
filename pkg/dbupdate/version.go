package dbupdate

import (
	"strconv"
	"strings"
	"unicode"
)

// special release tags, lowest first. Unknown tags sort before "dev".
var specialOrder = map[string]int{
	"dev": 0, "alpha": 1, "a": 1, "beta": 2, "b": 2, "rc": 3, "#": 4, "pl": 5, "p": 5,
}

// CompareVersions compares two dotted release versions such as "2.3.1.1"
// or "2.2-beta1". It returns -1, 0 or 1. An empty version is older than any
// other version.
func CompareVersions(a, b string) int {
	pa, pb := versionParts(a), versionParts(b)
	switch {
	case len(pa) == 0 && len(pb) == 0:
		return 0
	case len(pa) == 0:
		return -1
	case len(pb) == 0:
		return 1
	}
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y string
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if c := comparePart(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// versionParts splits on separators and on digit/letter boundaries.
func versionParts(v string) []string {
	v = strings.ToLower(strings.TrimSpace(v))
	var (
		parts []string
		cur   strings.Builder
		digit bool
	)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	for _, r := range v {
		switch {
		case r == '.' || r == '-' || r == '_' || r == '+':
			flush()
			continue
		case cur.Len() > 0 && unicode.IsDigit(r) != digit:
			flush()
		}
		digit = unicode.IsDigit(r)
		cur.WriteRune(r)
	}
	flush()
	return parts
}

// comparePart compares one component. A missing component is 0 against a
// number and a plain release against a tag, so "1.0" equals "1.0.0" and is
// newer than "1.0-rc1".
func comparePart(x, y string) int {
	xn, xerr := strconv.Atoi(x)
	yn, yerr := strconv.Atoi(y)
	switch {
	case xerr == nil && yerr == nil:
		return cmpInt(xn, yn)
	case x == "" && yerr == nil:
		return cmpInt(0, yn)
	case y == "" && xerr == nil:
		return cmpInt(xn, 0)
	case xerr == nil:
		return cmpInt(rank("#"), rank(y))
	case yerr == nil:
		return cmpInt(rank(x), rank("#"))
	}
	return cmpInt(rank(x), rank(y))
}

func rank(tag string) int {
	if tag == "" {
		return specialOrder["#"]
	}
	if r, ok := specialOrder[tag]; ok {
		return r
	}
	return -1
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
