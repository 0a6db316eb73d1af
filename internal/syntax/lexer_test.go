package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexerTokenStream(t *testing.T) {
	src := `namespace billing

type Invoice {
  id: string = 1 @required
  meta: map<string, string>
  tags: []string
}`

	lex := NewLexer("invoice.mux", src)

	want := []struct {
		typ TokenType
		lit string
	}{
		{TokenNamespace, "namespace"},
		{TokenIdent, "billing"},
		{TokenTypeKw, "type"},
		{TokenIdent, "Invoice"},
		{TokenLBrace, "{"},
		{TokenIdent, "id"},
		{TokenColon, ":"},
		{TokenIdent, "string"},
		{TokenAssign, "="},
		{TokenInt, "1"},
		{TokenAt, "@"},
		{TokenIdent, "required"},
		{TokenIdent, "meta"},
		{TokenColon, ":"},
		{TokenMap, "map"},
		{TokenLAngle, "<"},
		{TokenIdent, "string"},
		{TokenComma, ","},
		{TokenIdent, "string"},
		{TokenRAngle, ">"},
		{TokenIdent, "tags"},
		{TokenColon, ":"},
		{TokenLBracket, "["},
		{TokenRBracket, "]"},
		{TokenIdent, "string"},
		{TokenRBrace, "}"},
	}

	for i, w := range want {
		tok := lex.Next()
		require.Equal(t, w.typ, tok.Type, "token %d", i)
		assert.Equal(t, w.lit, tok.Literal, "token %d", i)
	}
	assert.Equal(t, TokenEOF, lex.Next().Type)
}

func TestLexerQualifiedIdent(t *testing.T) {
	lex := NewLexer("t.mux", "core.Money http.method")

	tok := lex.Next()
	require.Equal(t, TokenIdent, tok.Type)
	assert.Equal(t, "core.Money", tok.Literal)

	tok = lex.Next()
	require.Equal(t, TokenIdent, tok.Type)
	assert.Equal(t, "http.method", tok.Literal)
}

func TestLexerPositions(t *testing.T) {
	lex := NewLexer("t.mux", "type X {\n  a: int32\n}")

	tok := lex.Next() // type
	assert.Equal(t, 1, tok.Pos.Line)
	assert.Equal(t, 1, tok.Pos.Column)

	lex.Next() // X
	lex.Next() // {

	tok = lex.Next() // a
	assert.Equal(t, 2, tok.Pos.Line)
	assert.Equal(t, 3, tok.Pos.Column)
	assert.Equal(t, "t.mux", tok.Pos.File)
}

func TestLexerDocComments(t *testing.T) {
	src := "/// First line.\n/// @proto Wire notes.\n// plain comment\ntype X {}"
	lex := NewLexer("t.mux", src)

	tok := lex.Next()
	require.Equal(t, TokenDoc, tok.Type)
	assert.Equal(t, "First line.", tok.Literal)

	tok = lex.Next()
	require.Equal(t, TokenDoc, tok.Type)
	assert.Equal(t, "@proto Wire notes.", tok.Literal)

	// The plain // comment is skipped entirely.
	tok = lex.Next()
	assert.Equal(t, TokenTypeKw, tok.Type)
}

func TestLexerStrings(t *testing.T) {
	lex := NewLexer("t.mux", `"plain" "with \"quotes\"" "back\\slash"`)

	tok := lex.Next()
	require.Equal(t, TokenString, tok.Type)
	assert.Equal(t, "plain", tok.Literal)

	tok = lex.Next()
	require.Equal(t, TokenString, tok.Type)
	assert.Equal(t, `with "quotes"`, tok.Literal)

	tok = lex.Next()
	require.Equal(t, TokenString, tok.Type)
	assert.Equal(t, `back\slash`, tok.Literal)
}

func TestLexerUnterminatedString(t *testing.T) {
	lex := NewLexer("t.mux", `"no end`)
	tok := lex.Next()
	assert.Equal(t, TokenIllegal, tok.Type)
}

func TestLexerIllegalRune(t *testing.T) {
	lex := NewLexer("t.mux", "type X { a: in$32 }")
	var illegal []Token
	for {
		tok := lex.Next()
		if tok.Type == TokenEOF {
			break
		}
		if tok.Type == TokenIllegal {
			illegal = append(illegal, tok)
		}
	}
	require.Len(t, illegal, 1)
	assert.Equal(t, "$", illegal[0].Literal)
}
