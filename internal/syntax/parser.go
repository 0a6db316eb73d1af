package syntax

import (
	"fmt"
	"strconv"
)

// Parser is a recursive-descent parser with one token of lookahead.
// It stops at the first structural error.
type Parser struct {
	lex  *Lexer
	cur  Token
	peek Token

	pendingDoc []DocLine
}

// Parse parses one source file.
func Parse(file, src string) (*File, error) {
	p := &Parser{lex: NewLexer(file, src)}
	p.advance()
	p.advance()
	return p.parseFile(file)
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.Next()
}

// collectDoc drains consecutive doc comment tokens into pendingDoc.
func (p *Parser) collectDoc() {
	for p.cur.Type == TokenDoc {
		p.pendingDoc = append(p.pendingDoc, ParseDocLine(p.cur.Literal))
		p.advance()
	}
}

// takeDoc hands the accumulated doc lines to the node being parsed.
func (p *Parser) takeDoc() []DocLine {
	doc := p.pendingDoc
	p.pendingDoc = nil
	return doc
}

func (p *Parser) errExpected(expected string) error {
	return &Error{
		Message:  fmt.Sprintf("unexpected %s %q", p.cur.Type, p.cur.Literal),
		Expected: expected,
		Pos:      p.cur.Pos,
	}
}

func (p *Parser) expect(t TokenType) (Token, error) {
	if p.cur.Type != t {
		return Token{}, p.errExpected(t.String())
	}
	tok := p.cur
	p.advance()
	return tok, nil
}

func (p *Parser) parseFile(path string) (*File, error) {
	f := &File{Path: path}

	for p.cur.Type != TokenEOF {
		p.collectDoc()

		switch p.cur.Type {
		case TokenEOF:
			// trailing doc comment, nothing to attach it to
			p.pendingDoc = nil
		case TokenAt:
			attr, err := p.parseAttr()
			if err != nil {
				return nil, err
			}
			f.Attrs = append(f.Attrs, attr)
		case TokenNamespace:
			if f.Namespace != "" {
				return nil, &Error{Message: "duplicate namespace declaration", Pos: p.cur.Pos}
			}
			p.advance()
			name, err := p.expect(TokenIdent)
			if err != nil {
				return nil, err
			}
			f.Namespace = name.Literal
			p.pendingDoc = nil
		case TokenImport:
			pos := p.cur.Pos
			p.advance()
			path, err := p.expect(TokenString)
			if err != nil {
				return nil, err
			}
			f.Imports = append(f.Imports, &Import{Path: path.Literal, Pos: pos})
			p.pendingDoc = nil
		case TokenTypeKw:
			decl, err := p.parseType()
			if err != nil {
				return nil, err
			}
			f.Decls = append(f.Decls, decl)
		case TokenEnum:
			decl, err := p.parseEnum()
			if err != nil {
				return nil, err
			}
			f.Decls = append(f.Decls, decl)
		case TokenUnion:
			decl, err := p.parseUnion()
			if err != nil {
				return nil, err
			}
			f.Decls = append(f.Decls, decl)
		case TokenService:
			decl, err := p.parseService()
			if err != nil {
				return nil, err
			}
			f.Decls = append(f.Decls, decl)
		default:
			return nil, p.errExpected("a declaration")
		}
	}

	return f, nil
}

// parseDeclHead consumes the keyword, name and any annotations before
// the opening brace. Shared by all four declaration kinds.
func (p *Parser) parseDeclHead() (name Token, attrs []*Attr, err error) {
	p.advance() // keyword
	name, err = p.expect(TokenIdent)
	if err != nil {
		return Token{}, nil, err
	}
	attrs, err = p.parseAttrs()
	if err != nil {
		return Token{}, nil, err
	}
	if _, err = p.expect(TokenLBrace); err != nil {
		return Token{}, nil, err
	}
	return name, attrs, nil
}

func (p *Parser) parseType() (*TypeDecl, error) {
	doc := p.takeDoc()
	pos := p.cur.Pos
	name, attrs, err := p.parseDeclHead()
	if err != nil {
		return nil, err
	}

	decl := &TypeDecl{Name: name.Literal, Attrs: attrs, Doc: doc, Pos: pos}
	for p.cur.Type != TokenRBrace {
		if p.cur.Type == TokenEOF {
			return nil, p.errExpected("'}' closing type " + decl.Name)
		}
		field, err := p.parseField()
		if err != nil {
			return nil, err
		}
		decl.Fields = append(decl.Fields, field)
	}
	p.advance() // }
	return decl, nil
}

func (p *Parser) parseField() (*Field, error) {
	p.collectDoc()
	doc := p.takeDoc()

	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, p.errExpected("field name")
	}
	if _, err := p.expect(TokenColon); err != nil {
		return nil, err
	}
	typ, err := p.parseTypeExpr()
	if err != nil {
		return nil, err
	}

	field := &Field{Name: name.Literal, Type: typ, Doc: doc, Pos: name.Pos}

	if p.cur.Type == TokenQuestion {
		field.Optional = true
		p.advance()
	}
	if p.cur.Type == TokenAssign {
		p.advance()
		num, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		field.Num = num
		field.HasNum = true
	}
	field.Attrs, err = p.parseAttrs()
	if err != nil {
		return nil, err
	}
	return field, nil
}

func (p *Parser) parseTypeExpr() (*TypeExpr, error) {
	pos := p.cur.Pos
	switch p.cur.Type {
	case TokenLBracket:
		p.advance()
		if _, err := p.expect(TokenRBracket); err != nil {
			return nil, err
		}
		elem, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		return &TypeExpr{Kind: TypeArray, Elem: elem, Pos: pos}, nil
	case TokenMap:
		p.advance()
		if _, err := p.expect(TokenLAngle); err != nil {
			return nil, err
		}
		key, err := p.expect(TokenIdent)
		if err != nil {
			return nil, p.errExpected("map key type")
		}
		if _, err := p.expect(TokenComma); err != nil {
			return nil, err
		}
		value, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRAngle); err != nil {
			return nil, err
		}
		return &TypeExpr{Kind: TypeMap, Key: key.Literal, Value: value, Pos: pos}, nil
	case TokenIdent:
		name := p.cur.Literal
		p.advance()
		return &TypeExpr{Kind: TypeNamed, Name: name, Pos: pos}, nil
	default:
		return nil, p.errExpected("a type")
	}
}

func (p *Parser) parseEnum() (*EnumDecl, error) {
	doc := p.takeDoc()
	pos := p.cur.Pos
	name, attrs, err := p.parseDeclHead()
	if err != nil {
		return nil, err
	}

	decl := &EnumDecl{Name: name.Literal, Attrs: attrs, Doc: doc, Pos: pos}
	for p.cur.Type != TokenRBrace {
		if p.cur.Type == TokenEOF {
			return nil, p.errExpected("'}' closing enum " + decl.Name)
		}
		p.collectDoc()
		valueDoc := p.takeDoc()
		valueName, err := p.expect(TokenIdent)
		if err != nil {
			return nil, p.errExpected("enum value name")
		}
		value := &EnumValue{Name: valueName.Literal, Doc: valueDoc, Pos: valueName.Pos}
		if p.cur.Type == TokenAssign {
			p.advance()
			num, err := p.parseInt()
			if err != nil {
				return nil, err
			}
			value.Num = num
			value.HasNum = true
		}
		decl.Values = append(decl.Values, value)
	}
	p.advance() // }
	return decl, nil
}

func (p *Parser) parseUnion() (*UnionDecl, error) {
	doc := p.takeDoc()
	pos := p.cur.Pos
	name, attrs, err := p.parseDeclHead()
	if err != nil {
		return nil, err
	}

	decl := &UnionDecl{Name: name.Literal, Attrs: attrs, Doc: doc, Pos: pos}
	for p.cur.Type != TokenRBrace {
		if p.cur.Type == TokenEOF {
			return nil, p.errExpected("'}' closing union " + decl.Name)
		}
		alt, err := p.expect(TokenIdent)
		if err != nil {
			return nil, p.errExpected("union alternative")
		}
		decl.Alts = append(decl.Alts, alt.Literal)
		decl.AltPos = append(decl.AltPos, alt.Pos)
	}
	p.advance() // }
	return decl, nil
}

func (p *Parser) parseService() (*ServiceDecl, error) {
	doc := p.takeDoc()
	pos := p.cur.Pos
	name, attrs, err := p.parseDeclHead()
	if err != nil {
		return nil, err
	}

	decl := &ServiceDecl{Name: name.Literal, Attrs: attrs, Doc: doc, Pos: pos}
	for p.cur.Type != TokenRBrace {
		if p.cur.Type == TokenEOF {
			return nil, p.errExpected("'}' closing service " + decl.Name)
		}
		method, err := p.parseMethod()
		if err != nil {
			return nil, err
		}
		decl.Methods = append(decl.Methods, method)
	}
	p.advance() // }
	return decl, nil
}

func (p *Parser) parseMethod() (*Method, error) {
	p.collectDoc()
	doc := p.takeDoc()

	if _, err := p.expect(TokenRPC); err != nil {
		return nil, err
	}
	name, err := p.expect(TokenIdent)
	if err != nil {
		return nil, p.errExpected("method name")
	}

	method := &Method{Name: name.Literal, Doc: doc, Pos: name.Pos}

	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	if p.cur.Type == TokenStream {
		method.InputStream = true
		p.advance()
	}
	input, err := p.expect(TokenIdent)
	if err != nil {
		return nil, p.errExpected("request type")
	}
	method.Input = input.Literal
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}

	if _, err := p.expect(TokenReturns); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	if p.cur.Type == TokenStream {
		method.OutputStream = true
		p.advance()
	}
	output, err := p.expect(TokenIdent)
	if err != nil {
		return nil, p.errExpected("response type")
	}
	method.Output = output.Literal
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}

	method.Attrs, err = p.parseAttrs()
	if err != nil {
		return nil, err
	}
	return method, nil
}

// parseAttrs consumes zero or more @key(args) annotations.
func (p *Parser) parseAttrs() ([]*Attr, error) {
	var attrs []*Attr
	for p.cur.Type == TokenAt {
		attr, err := p.parseAttr()
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func (p *Parser) parseAttr() (*Attr, error) {
	pos := p.cur.Pos
	p.advance() // @
	key, err := p.expect(TokenIdent)
	if err != nil {
		return nil, p.errExpected("annotation key")
	}

	attr := &Attr{Key: key.Literal, Pos: pos}
	if p.cur.Type != TokenLParen {
		return attr, nil
	}
	p.advance() // (

	for p.cur.Type != TokenRParen {
		switch p.cur.Type {
		case TokenIdent, TokenInt, TokenString, TokenStream, TokenMap:
			attr.Args = append(attr.Args, p.cur.Literal)
			p.advance()
		default:
			return nil, p.errExpected("annotation argument")
		}
		if p.cur.Type == TokenComma {
			p.advance()
			continue
		}
		if p.cur.Type != TokenRParen {
			return nil, p.errExpected("',' or ')'")
		}
	}
	p.advance() // )
	return attr, nil
}

func (p *Parser) parseInt() (int, error) {
	tok, err := p.expect(TokenInt)
	if err != nil {
		return 0, p.errExpected("an integer")
	}
	n, err := strconv.Atoi(tok.Literal)
	if err != nil {
		return 0, &Error{Message: fmt.Sprintf("invalid integer %q", tok.Literal), Pos: tok.Pos}
	}
	return n, nil
}
