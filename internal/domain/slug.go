package domain

import (
	"strconv"
	"strings"
	"unicode"
)

const (
	maxSlugLength = 80
	fallbackSlug  = "dataset"
)

var transliterations = map[rune]string{
	'ä': "ae", 'ö': "oe", 'ü': "ue", 'ß': "ss",
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'å': "a", 'æ': "ae",
	'ç': "c", 'è': "e", 'é': "e", 'ê': "e", 'ë': "e",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i",
	'ñ': "n", 'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o", 'ø': "o",
	'ù': "u", 'ú': "u", 'û': "u", 'ý': "y", 'ÿ': "y",
	'ł': "l", 'œ': "oe",
}

// Slugify derives a URL-safe segment from a resource title.
//
//	"Seismic Data: Potsdam (2024)" -> "seismic-data-potsdam-2024"
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case transliterations[r] != "":
			b.WriteString(transliterations[r])
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
		// cut back to the last word boundary
		if i := strings.LastIndexByte(slug, '-'); i > maxSlugLength/2 {
			slug = slug[:i]
		}
		slug = strings.Trim(slug, "-")
	}
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// SlugWithSuffix returns base for n < 2 and base-n otherwise.
func SlugWithSuffix(base string, n int) string {
	if n < 2 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// SlugMatchesBase reports whether slug is base or base-N (N >= 2).
func SlugMatchesBase(slug, base string) bool {
	if slug == base {
		return true
	}
	rest, ok := strings.CutPrefix(slug, base+"-")
	if !ok {
		return false
	}
	n, err := strconv.Atoi(rest)
	return err == nil && n >= 2 && strconv.Itoa(n) == rest
}
