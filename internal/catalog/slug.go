package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var translit = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
}

var lower = cases.Lower(language.Und)

// Slugify lowercases, transliterates Cyrillic, drops diacritics and joins words with '-'.
func Slugify(s string) string {
	// ё and й decompose under NFKD; transliterate them before normalising.
	var pre strings.Builder
	for _, r := range lower.String(s) {
		if t, ok := translit[r]; ok {
			pre.WriteString(t)
			continue
		}
		pre.WriteRune(r)
	}

	var b strings.Builder
	dash := false
	for _, r := range norm.NFKD.String(pre.String()) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// SKUSegment is the uppercase slug used when composing derived SKUs.
func SKUSegment(s string) string {
	return strings.ToUpper(Slugify(s))
}
