package record

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// numberPattern accepts plain or comma-grouped decimals with an optional sign.
var numberPattern = regexp.MustCompile(`^[-+]?(\d{1,3}(,\d{3})+|\d+)(\.\d+)?$`)

// currencyAffixes are stripped from either end before parsing.
var currencyAffixes = []string{"¥", "$", "€", "£", "RMB", "CNY", "USD", "元", "圆"}

// maxSignificantDigits bounds coercion to values a float64 holds exactly.
const maxSignificantDigits = 15

// CoerceNumber converts currency, count and quantity text to a number.
// Identifiers are left alone: values with a leading zero (codes, phone
// prefixes) or more than 15 digits are not numbers.
func CoerceNumber(s string) (float64, bool) {
	s = strings.TrimSpace(norm.NFKC.String(s))
	if s == "" {
		return 0, false
	}

	for changed := true; changed; {
		changed = false
		for _, affix := range currencyAffixes {
			if strings.HasPrefix(s, affix) {
				s, changed = strings.TrimSpace(strings.TrimPrefix(s, affix)), true
			}
			if strings.HasSuffix(s, affix) {
				s, changed = strings.TrimSpace(strings.TrimSuffix(s, affix)), true
			}
		}
	}

	if !numberPattern.MatchString(s) {
		return 0, false
	}

	digits := strings.TrimLeft(s, "+-")
	if len(digits) > 1 && digits[0] == '0' && digits[1] != '.' {
		return 0, false
	}
	if countDigits(digits) > maxSignificantDigits {
		return 0, false
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// CoerceValues returns a copy of rec with numeric strings converted.
func CoerceValues(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		if s, ok := v.(string); ok {
			if f, ok := CoerceNumber(s); ok {
				out[k] = f
				continue
			}
		}
		out[k] = v
	}
	return out
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
