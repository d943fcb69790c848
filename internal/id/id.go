package id

import (
	"strings"

	"github.com/google/uuid"
)

// NewRunID returns a fresh identifier for a reconciliation run.
func NewRunID() string {
	return uuid.NewString()
}

// ParseRunID validates a run identifier and returns it in canonical form.
func ParseRunID(s string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Compare orders record ids naturally: digit runs compare by numeric value,
// everything else byte-wise. "9" < "10" < "A2" < "A10" < "B".
// Ids that are naturally equal ("007" vs "7") fall back to plain string order.
func Compare(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			ei := digitsEnd(a, i)
			ej := digitsEnd(b, j)
			if c := compareDigits(a[i:ei], b[j:ej]); c != 0 {
				return c
			}
			i, j = ei, ej
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case len(a)-i < len(b)-j:
		return -1
	case len(a)-i > len(b)-j:
		return 1
	}
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b under Compare.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func digitsEnd(s string, start int) int {
	end := start
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	return end
}

// compareDigits compares two digit runs by value without overflow.
func compareDigits(x, y string) int {
	x = strings.TrimLeft(x, "0")
	y = strings.TrimLeft(y, "0")
	if len(x) != len(y) {
		if len(x) < len(y) {
			return -1
		}
		return 1
	}
	return strings.Compare(x, y)
}
