package synth

import (
	"strings"

	"github.com/galois26/creator-feed/internal/lexicon"
)

// Placeholders lists the known placeholders referenced by text, in order of first use.
func Placeholders(text string) []lexicon.Placeholder {
	var out []lexicon.Placeholder
	seen := make(map[lexicon.Placeholder]bool)
	scan(text, func(name string) {
		if p, ok := lexicon.ParsePlaceholder(name); ok && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	})
	return out
}

// Expand replaces every {token} in text whose placeholder has a value in vals.
// Unknown tokens and tokens without a value are left verbatim.
func Expand(text string, vals map[lexicon.Placeholder]string) string {
	var b strings.Builder
	b.Grow(len(text))
	rest := text
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			b.WriteString(rest)
			break
		}
		end += open
		open = strings.LastIndexByte(rest[:end], '{') // innermost brace before end
		b.WriteString(rest[:open])
		token := rest[open : end+1]
		if p, ok := lexicon.ParsePlaceholder(rest[open+1 : end]); ok {
			if v, ok := vals[p]; ok {
				token = v
			}
		}
		b.WriteString(token)
		rest = rest[end+1:]
	}
	return b.String()
}

func scan(text string, fn func(name string)) {
	rest := text
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return
		}
		end += open
		open = strings.LastIndexByte(rest[:end], '{')
		fn(rest[open+1 : end])
		rest = rest[end+1:]
	}
}
