package automap

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizerKind selects the header normalization rule of an alias table.
type NormalizerKind string

const (
	// NormalizerSimple lower-cases and removes whitespace only.
	NormalizerSimple NormalizerKind = "simple"

	// NormalizerStrict lower-cases, folds accents and keeps [a-z0-9] only.
	NormalizerStrict NormalizerKind = "strict"
)

// Normalizer turns a header or alias into its comparison form.
type Normalizer func(string) string

// NormalizerFor returns the normalizer for kind. An empty kind means simple.
func NormalizerFor(kind NormalizerKind) (Normalizer, error) {
	switch NormalizerKind(strings.ToLower(string(kind))) {
	case "", NormalizerSimple:
		return NormalizeSimple, nil
	case NormalizerStrict:
		return NormalizeStrict, nil
	default:
		return nil, fmt.Errorf("unknown normalizer %q", kind)
	}
}

// NormalizeSimple lower-cases s and drops every whitespace rune.
//
//	"Executive Name" -> "executivename"
//	"Net\tValue"     -> "netvalue"
func NormalizeSimple(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeStrict lower-cases s, strips diacritics and keeps ASCII letters
// and digits only.
//
//	"Exec. Name (Código)" -> "execnamecodigo"
func NormalizeStrict(s string) string {
	folded, _, err := transform.String(foldAccents(), strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// foldAccents builds a fresh transformer per call; transform.Chain values
// keep state and are not safe for concurrent use.
func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
