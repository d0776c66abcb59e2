package format

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		line string
		want []Token
	}{
		{"", nil},
		{"   \t ", nil},
		{"one", []Token{{Text: "one", Offset: 0}}},
		{"one two", []Token{
			{Text: "one", Offset: 0},
			{Text: "two", Offset: 4},
		}},
		{"  one\t\ttwo ", []Token{
			{Text: "one", Offset: 2},
			{Text: "two", Offset: 7},
		}},
		{`"quoted text" bare`, []Token{
			{Text: "quoted text", Offset: 0, Quoted: true},
			{Text: "bare", Offset: 14},
		}},
		{`""`, []Token{{Text: "", Offset: 0, Quoted: true}}},
		{`"a \"b\" \\c"`, []Token{{Text: `a "b" \c`, Offset: 0, Quoted: true}}},
	}
	for _, c := range cases {
		got, err := Tokenize(c.line)
		require.NoError(t, err, "line %q", c.line)
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", c.line, diff)
		}
	}
}

func TestTokenizeErrors(t *testing.T) {
	cases := []struct {
		line   string
		offset int
	}{
		{`"never closed`, 0},
		{`"bad \x escape"`, 5},
		{`"trailing \`, 10},
		{`mid"token`, 3},
		{`"no"gap`, 4},
	}
	for _, c := range cases {
		_, err := Tokenize(c.line)
		require.Error(t, err, "line %q", c.line)
		var pe *ParseError
		require.ErrorAs(t, err, &pe, "line %q", c.line)
		assert.Equal(t, c.offset, pe.Offset, "line %q", c.line)
		assert.NotEmpty(t, pe.Expected, "line %q", c.line)
		assert.NotEmpty(t, pe.Actual, "line %q", c.line)
	}
}

// Multibyte runes must survive tokenization intact: continuation bytes that
// coincide with space-class code points (0xA0, 0x85) are not separators.
func TestTokenizeMultibyteRunes(t *testing.T) {
	cases := []struct {
		line string
		want []Token
	}{
		{"à", []Token{{Text: "à", Offset: 0}}},
		{"señal vista", []Token{
			{Text: "señal", Offset: 0},
			{Text: "vista", Offset: 7},
		}},
		{`"à la carte"`, []Token{{Text: "à la carte", Offset: 0, Quoted: true}}},
		// U+00A0 no-break space is itself a separator.
		{"a b", []Token{
			{Text: "a", Offset: 0},
			{Text: "b", Offset: 3},
		}},
	}
	for _, c := range cases {
		got, err := Tokenize(c.line)
		require.NoError(t, err, "line %q", c.line)
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", c.line, diff)
		}
	}
}

func TestTokenIsNone(t *testing.T) {
	assert.True(t, Token{Text: "", Quoted: true}.IsNone())
	assert.False(t, Token{Text: "", Quoted: false}.IsNone())
	assert.False(t, Token{Text: "x", Quoted: true}.IsNone())
}

func TestQuote(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"bare", "bare"},
		{"", `""`},
		{"two words", `"two words"`},
		{`has"quote`, `"has\"quote"`},
		{`back\slash`, `"back\\slash"`},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Quote(c.in), "input %q", c.in)
	}
}

// Quoting then tokenizing must reproduce the original string.
func TestQuoteRoundTrip(t *testing.T) {
	for _, s := range []string{"bare", "", "two words", `a "b" \c`, "\ttab"} {
		tokens, err := Tokenize(Quote(s))
		require.NoError(t, err, "input %q", s)
		require.Len(t, tokens, 1, "input %q", s)
		assert.Equal(t, s, tokens[0].Text, "input %q", s)
	}
}

func TestSplitCompound(t *testing.T) {
	prefix, number, ok := SplitCompound("s100")
	require.True(t, ok)
	assert.Equal(t, "s", prefix)
	assert.Equal(t, "100", number)

	prefix, number, ok = SplitCompound("ab12")
	require.True(t, ok)
	assert.Equal(t, "ab", prefix)
	assert.Equal(t, "12", number)

	for _, text := range []string{"s", "100", "s100x", ""} {
		_, _, ok := SplitCompound(text)
		assert.False(t, ok, "text %q", text)
	}
}
