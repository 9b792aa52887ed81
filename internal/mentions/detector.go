// Package mentions finds tracked brands inside free-form provider responses.
//
// Matching is lexical: a brand counts when its name appears as a standalone
// whole word, case-insensitively. A name written as part of a product phrase
// ("HubSpot CRM") is not standalone; those phrases are only tried as a fallback
// when the brand never appears on its own.
package mentions

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/AI-Template-SDK/visibility-workflows/internal/models"
)

// ContextWindow is the snippet length around a match, split evenly on both sides.
const ContextWindow = 150

// variationSuffixes are tried in order; the first one found wins.
var variationSuffixes = []string{"crm", "software", "platform", "tool"}

type brandPattern struct {
	brand      models.Brand
	exact      *regexp.Regexp
	phraseAt   *regexp.Regexp
	variations []*regexp.Regexp
}

// Detector holds compiled patterns for a brand roster and can be reused across
// responses.
type Detector struct {
	patterns []brandPattern
}

// NewDetector compiles patterns for every brand with a non-blank name.
func NewDetector(brands []models.Brand) *Detector {
	d := &Detector{patterns: make([]brandPattern, 0, len(brands))}
	for _, b := range brands {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			continue
		}
		quoted := regexp.QuoteMeta(name)
		p := brandPattern{
			brand:    b,
			exact:    regexp.MustCompile(`(?i)` + quoted),
			phraseAt: regexp.MustCompile(`(?i)^` + quoted + ` (?:` + strings.Join(variationSuffixes, "|") + `)`),
		}
		for _, suffix := range variationSuffixes {
			p.variations = append(p.variations, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(name+" "+suffix)))
		}
		d.patterns = append(d.patterns, p)
	}
	return d
}

// DetectMentions is NewDetector(brands).Detect(text).
func DetectMentions(text string, brands []models.Brand) []models.MentionCandidate {
	return NewDetector(brands).Detect(text)
}

// Detect returns candidates in brand order. Exact matches carry their 1-based
// ordinal; a variation match has no position and only appears when the brand had
// no exact match.
func (d *Detector) Detect(text string) []models.MentionCandidate {
	var out []models.MentionCandidate
	if text == "" {
		return out
	}

	for _, p := range d.patterns {
		offsets := p.standaloneMatches(text)
		for i, off := range offsets {
			position := i + 1
			out = append(out, models.MentionCandidate{
				BrandID:  p.brand.ID,
				Position: &position,
				Context:  ExtractContext(text, off),
			})
		}
		if len(offsets) > 0 {
			continue
		}

		for _, v := range p.variations {
			if loc := v.FindStringIndex(text); loc != nil {
				out = append(out, models.MentionCandidate{
					BrandID: p.brand.ID,
					Context: ExtractContext(text, loc[0]),
				})
				break
			}
		}
	}
	return out
}

// standaloneMatches returns the byte offsets of whole-word matches that do not
// open a variation phrase. A whole word is bounded by a string edge or a non-word
// rune on both sides.
func (p brandPattern) standaloneMatches(text string) []int {
	var offsets []int
	pos := 0
	for pos <= len(text) {
		loc := p.exact.FindStringIndex(text[pos:])
		if loc == nil || loc[1] == loc[0] {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if isWordBoundary(text, start, end) && !p.opensPhrase(text, start) {
			offsets = append(offsets, start)
			pos = end
			continue
		}
		// retry from the next rune so overlapping candidates are not skipped
		_, size := utf8.DecodeRuneInString(text[start:])
		pos = start + size
	}
	return offsets
}

// opensPhrase reports whether the match at start is followed by a whole-word
// variation suffix, as in "HubSpot CRM" but not "HubSpot toolkit".
func (p brandPattern) opensPhrase(text string, start int) bool {
	loc := p.phraseAt.FindStringIndex(text[start:])
	if loc == nil {
		return false
	}
	end := start + loc[1]
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		return !isWordRune(r)
	}
	return true
}

func isWordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ExtractContext returns up to ContextWindow runes centred on the byte offset,
// with "..." marking truncated ends, trimmed of surrounding whitespace.
func ExtractContext(text string, offset int) string {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}

	half := ContextWindow / 2
	runes := []rune(text)
	at := utf8.RuneCountInString(text[:offset])

	start := max(0, at-half)
	end := min(len(runes), at+half)

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString("...")
	}
	return strings.TrimSpace(b.String())
}
