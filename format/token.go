// Package format converts between observation lines and tokens: it splits
// raw text into offset-tracked tokens, matches tokens against an observation
// type's line layout, and renders observations back to canonical text.
package format

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is one whitespace-delimited item of an observation line. Offset is
// the byte position of the token's first character in the source line, so
// errors can point back at the text a user typed.
type Token struct {
	Text   string
	Offset int
	Quoted bool
}

// IsNone reports whether the token is the empty quoted string, which marks
// an omitted optional field.
func (t Token) IsNone() bool { return t.Quoted && t.Text == "" }

// ParseError describes a syntax error at a byte offset in a line, in terms
// of what was expected there and what was found instead.
type ParseError struct {
	Offset   int
	Expected string
	Actual   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("at offset %d: expected %s, found %s", e.Offset, e.Expected, e.Actual)
}

// Tokenize splits a line into tokens. Tokens are separated by runs of
// whitespace. A token starting with '"' is a quoted string running to the
// closing quote, with `\\` and `\"` escapes; all other tokens are bare and
// may not contain a quote character.
func Tokenize(line string) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(line) {
		r, size := utf8.DecodeRuneInString(line[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		start := i
		if r == '"' {
			text, next, err := scanQuoted(line, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Text: text, Offset: start, Quoted: true})
			i = next
			continue
		}
		for i < len(line) {
			r, size := utf8.DecodeRuneInString(line[i:])
			if unicode.IsSpace(r) {
				break
			}
			if r == '"' {
				return nil, &ParseError{
					Offset:   i,
					Expected: "end of token",
					Actual:   `'"'`,
				}
			}
			i += size
		}
		tokens = append(tokens, Token{Text: line[start:i], Offset: start})
	}
	return tokens, nil
}

// scanQuoted reads a quoted string starting at the opening quote and returns
// the unescaped text and the index just past the closing quote.
func scanQuoted(line string, start int) (string, int, error) {
	var b strings.Builder
	i := start + 1
	for i < len(line) {
		switch line[i] {
		case '"':
			i++
			if i < len(line) {
				r, _ := utf8.DecodeRuneInString(line[i:])
				if !unicode.IsSpace(r) {
					return "", 0, &ParseError{
						Offset:   i,
						Expected: "whitespace after closing quote",
						Actual:   fmt.Sprintf("%q", r),
					}
				}
			}
			return b.String(), i, nil
		case '\\':
			i++
			if i >= len(line) || (line[i] != '\\' && line[i] != '"') {
				return "", 0, &ParseError{
					Offset:   i - 1,
					Expected: `'\\' or '\"' escape`,
					Actual:   escapeActual(line, i),
				}
			}
			b.WriteByte(line[i])
			i++
		default:
			b.WriteByte(line[i])
			i++
		}
	}
	return "", 0, &ParseError{
		Offset:   start,
		Expected: "closing quote",
		Actual:   "end of line",
	}
}

func escapeActual(line string, i int) string {
	if i >= len(line) {
		return "end of line"
	}
	return fmt.Sprintf("%q", line[i])
}

// Quote renders a string value as a wire token, adding quotes and escapes
// only when the bare form would be ambiguous. The empty string always quotes,
// yielding the omitted-field marker.
func Quote(s string) string {
	if !needsQuote(s) {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if unicode.IsSpace(r) || r == '"' || r == '\\' {
			return true
		}
	}
	return false
}

var compoundRE = regexp.MustCompile(`^([^\s\d]+)(\d+)$`)

// SplitCompound splits a token like "s100" into its command prefix and
// trailing number. It reports false for tokens with no trailing digits or
// no leading non-digit prefix.
func SplitCompound(text string) (prefix, number string, ok bool) {
	m := compoundRE.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
