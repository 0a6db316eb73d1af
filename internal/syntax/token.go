package syntax

import "fmt"

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	TokenIllegal TokenType = iota
	TokenEOF

	TokenIdent  // identifiers, possibly dotted: Invoice, core.Money
	TokenInt    // integer literal
	TokenString // double-quoted string literal
	TokenDoc    // one /// doc comment line, text without the marker

	TokenLBrace   // {
	TokenRBrace   // }
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenLAngle   // <
	TokenRAngle   // >
	TokenComma    // ,
	TokenColon    // :
	TokenAssign   // =
	TokenQuestion // ?
	TokenAt       // @
	TokenPipe     // |

	TokenNamespace
	TokenImport
	TokenEnum
	TokenTypeKw
	TokenUnion
	TokenService
	TokenRPC
	TokenReturns
	TokenStream
	TokenMap
)

var tokenNames = map[TokenType]string{
	TokenIllegal:   "illegal",
	TokenEOF:       "end of file",
	TokenIdent:     "identifier",
	TokenInt:       "integer",
	TokenString:    "string",
	TokenDoc:       "doc comment",
	TokenLBrace:    "'{'",
	TokenRBrace:    "'}'",
	TokenLParen:    "'('",
	TokenRParen:    "')'",
	TokenLBracket:  "'['",
	TokenRBracket:  "']'",
	TokenLAngle:    "'<'",
	TokenRAngle:    "'>'",
	TokenComma:     "','",
	TokenColon:     "':'",
	TokenAssign:    "'='",
	TokenQuestion:  "'?'",
	TokenAt:        "'@'",
	TokenPipe:      "'|'",
	TokenNamespace: "'namespace'",
	TokenImport:    "'import'",
	TokenEnum:      "'enum'",
	TokenTypeKw:    "'type'",
	TokenUnion:     "'union'",
	TokenService:   "'service'",
	TokenRPC:       "'rpc'",
	TokenReturns:   "'returns'",
	TokenStream:    "'stream'",
	TokenMap:       "'map'",
}

// String returns a human-readable name for use in diagnostics.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

var keywords = map[string]TokenType{
	"namespace": TokenNamespace,
	"import":    TokenImport,
	"enum":      TokenEnum,
	"type":      TokenTypeKw,
	"union":     TokenUnion,
	"service":   TokenService,
	"rpc":       TokenRPC,
	"returns":   TokenReturns,
	"stream":    TokenStream,
	"map":       TokenMap,
}

// Token is one lexical unit with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Pos
}

// Pos identifies a location in a source file. Line and column are
// 1-based; a zero Pos is not valid.
type Pos struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// IsValid reports whether the position carries real location info.
func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}
