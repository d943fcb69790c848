package recon

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// noiseTokens are banking boilerplate words that carry no counterparty signal.
var noiseTokens = map[string]bool{
	"ach": true, "pos": true, "debit": true, "credit": true, "card": true,
	"payment": true, "pmt": true, "online": true, "transfer": true, "xfer": true,
	"deposit": true, "dep": true, "wire": true, "purchase": true, "w": true,
	"d": true, "ref": true, "inc": true, "llc": true, "the": true,
}

var editOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// Similarity scores two free-text descriptions in [0,1].
// Both are folded (case, accents, punctuation, banking noise words) and the
// result is the larger of the token overlap coefficient and the normalized
// edit-distance ratio of the folded strings.
func Similarity(a, b string) float64 {
	ta := descriptionTokens(a)
	tb := descriptionTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	overlap := overlapCoefficient(ta, tb)
	edit := editRatio(strings.Join(ta, " "), strings.Join(tb, " "))
	if edit > overlap {
		return edit
	}
	return overlap
}

func descriptionTokens(s string) []string {
	folded := foldText(s)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if noiseTokens[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// foldText lower-cases s and strips diacritics ("Café" -> "cafe").
func foldText(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

func overlapCoefficient(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}
	shared := 0
	for t := range setA {
		if setB[t] {
			shared++
		}
	}
	smaller := len(setA)
	if len(setB) < smaller {
		smaller = len(setB)
	}
	return float64(shared) / float64(smaller)
}

func editRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.DistanceForStrings(ra, rb, editOptions)
	return 1 - float64(dist)/float64(longest)
}
