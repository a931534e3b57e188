package matching

import (
	"strings"
	"unicode"
)

var accentReplacer = strings.NewReplacer(
	"à", "a", "â", "a", "ä", "a", "á", "a",
	"ç", "c",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"î", "i", "ï", "i", "í", "i",
	"ô", "o", "ö", "o", "ó", "o",
	"ù", "u", "û", "u", "ü", "u", "ú", "u",
	"ÿ", "y", "œ", "oe", "æ", "ae",
)

var symbolReplacer = strings.NewReplacer(
	"c++", "cpp",
	"c#", "csharp",
	"f#", "fsharp",
	".net", "dotnet",
	"node.js", "nodejs",
	"vue.js", "vuejs",
	"next.js", "nextjs",
)

// NormalizeText lowercases, strips accents and keeps letters, digits and single spaces.
func NormalizeText(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	input = strings.ToLower(input)
	input = accentReplacer.Replace(input)
	input = symbolReplacer.Replace(input)

	b := strings.Builder{}
	b.Grow(len(input))
	lastWasSpace := false

	for _, r := range input {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if b.Len() == 0 || lastWasSpace {
			continue
		}
		b.WriteByte(' ')
		lastWasSpace = true
	}

	return strings.TrimSpace(b.String())
}

// NormalizeSkill turns a free-form skill label into its canonical name.
// Qualifiers such as "Anglais (C1)" or "anglais: courant" are dropped.
func NormalizeSkill(input string) string {
	if i := strings.IndexAny(input, "(:"); i >= 0 {
		input = input[:i]
	}
	n := NormalizeText(input)
	if n == "" {
		return ""
	}
	if canonical, ok := skillAliases[n]; ok {
		return canonical
	}
	return n
}

// NormalizeKey normalizes a tag key such as "évolution rapide" into "evolution_rapide".
func NormalizeKey(input string) string {
	return strings.ReplaceAll(NormalizeText(input), " ", "_")
}

func normalizeSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		n := NormalizeSkill(it)
		if n == "" {
			continue
		}
		out[n] = struct{}{}
	}
	return out
}

func normalizeList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		n := NormalizeSkill(it)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
