// Package human parses and formats the values people type in configuration
// files and on the command line: byte sizes, durations, rates and paths.
//
// Each type implements flag.Value and the text, JSON and YAML marshaling
// interfaces, so it can be used directly as a command line flag or as a field
// of the configuration.
package human

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// splitUnit separates the number at the start of s from the unit that follows
// it. Spaces between the two are ignored.
func splitUnit(s string) (number, unit string) {
	s = strings.TrimSpace(s)
	i := strings.LastIndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	return strings.TrimSpace(s[:i+1]), s[i+1:]
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ftoa formats value/scale keeping at most three significant digits below
// 100, and drops trailing zeros.
func ftoa(value, scale float64) string {
	v := value / scale
	prec := 2
	switch a := math.Abs(v); {
	case a >= 100:
		prec = 0
	case a >= 10:
		prec = 1
	}
	s := strconv.FormatFloat(v, 'f', prec, 64)
	if strings.IndexByte(s, '.') >= 0 {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
