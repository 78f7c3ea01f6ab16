package content

import (
	"strings"
	"unicode"

	gosimpleslug "github.com/gosimple/slug"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldedLetters covers Latin letters that carry no combining mark under NFD
// and would otherwise be dropped.
var foldedLetters = map[rune]string{
	'ß': "ss",
	'æ': "ae",
	'œ': "oe",
	'ø': "o",
	'đ': "d",
	'ð': "d",
	'ł': "l",
	'þ': "th",
	'ı': "i",
}

// Slugify converts a title into a lowercase URL slug.
//
// The result contains only ASCII letters, digits and single hyphens, with no
// leading or trailing hyphen. Diacritics are folded to their base letter
// ("Café" → "cafe"), and compatibility characters are mapped to their plain
// form ("ﬁsh" → "fish"). Apostrophes and quotes are dropped so contractions stay
// in one word; every other run of non-alphanumeric characters becomes one
// hyphen.
//
// Returns "" for empty or punctuation-only input. Callers must reject an
// empty slug.
//
// Example:
//
//	Slugify("Hello, World! 2024") // "hello-world-2024"
func Slugify(title string) string {
	folded := strings.ToLower(foldDiacritics(title))

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false

	for _, r := range folded {
		if s, ok := foldedLetters[r]; ok {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteString(s)
			continue
		}

		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case isDroppedMark(r):
			// Dropped without introducing a word boundary.
		default:
			pendingHyphen = true
		}
	}

	return b.String()
}

// foldDiacritics decomposes s with compatibility mappings (NFKD), removes
// non-spacing marks and recomposes (NFC). Ligatures, fullwidth forms and
// digraphs become their plain letters and digits ("ﬁ" → "fi", "２" → "2").
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

func isDroppedMark(r rune) bool {
	switch r {
	case '\'', '"', '`', '‘', '’', '“', '”':
		return true
	}
	return false
}

// Username derives an account handle from an email address or display name.
//
// The local part of an email is used when s contains "@". The handle is
// transliterated by gosimple/slug and stripped to [a-z0-9]; for example
// "John.Doe@example.com" → "johndoe". Returns "" when nothing usable remains.
func Username(s string) string {
	if at := strings.IndexByte(s, '@'); at >= 0 {
		s = s[:at]
	}
	handle := gosimpleslug.Make(s)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, strings.ToLower(handle))
}
