package matching

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/desertthunder/ytsync/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// KeySeparator joins the title and artist parts of a [models.NormalizedKey].
const KeySeparator = "|"

var (
	bracketRegex    = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|\{[^}]*\}`)
	dashSuffixRegex = regexp.MustCompile(`\s[-–—]\s(.+)$`)
	versionTagRegex = regexp.MustCompile(`\b(live|acoustic|remix(?:ed)?|instrumental|karaoke|demo|cover|sped up|slowed)\b`)
)

// Normalizer canonicalizes track text for comparison.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Key builds the canonical "<title>|<artist> <artist>..." form of a track.
func (n *Normalizer) Key(title string, artists []string) models.NormalizedKey {
	parts := make([]string, 0, len(artists))
	for _, a := range artists {
		if v := n.Text(a); v != "" {
			parts = append(parts, v)
		}
	}
	return models.NormalizedKey(n.Text(title) + KeySeparator + strings.Join(parts, " "))
}

// Text normalizes a single title or artist string.
//
// Width variants are folded, case is fully folded, bracketed annotations are removed,
// "&" becomes "and", diacritics are stripped from Latin letters only, punctuation and
// symbols split words, and featuring markers collapse to "feat".
func (n *Normalizer) Text(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	s = bracketRegex.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&", " and ")
	s = stripLatinMarks(s)

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	for i, f := range fields {
		switch f {
		case "ft", "featuring":
			fields[i] = "feat"
		}
	}
	return strings.Join(fields, " ")
}

// VersionTags returns the sorted recording-variant markers (live, remix, acoustic...)
// found in a title's bracketed annotations or dash suffix.
func (n *Normalizer) VersionTags(title string) []string {
	folded := cases.Fold().String(norm.NFKC.String(title))

	var sources []string
	sources = append(sources, bracketRegex.FindAllString(folded, -1)...)
	if m := dashSuffixRegex.FindStringSubmatch(folded); m != nil {
		sources = append(sources, m[1])
	}

	seen := make(map[string]struct{})
	for _, src := range sources {
		for _, tag := range versionTagRegex.FindAllString(src, -1) {
			if tag == "remixed" {
				tag = "remix"
			}
			seen[tag] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// stripLatinMarks removes combining marks that follow a Latin base letter.
// Marks on other scripts are kept so Devanagari, Hangul and similar text is unaltered.
func stripLatinMarks(s string) string {
	d := norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(d))
	latinBase := false
	for _, r := range d {
		if unicode.Is(unicode.Mn, r) {
			if latinBase {
				continue
			}
		} else {
			latinBase = unicode.Is(unicode.Latin, r)
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}
