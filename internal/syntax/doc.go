// Package syntax turns IDL source text into an abstract syntax tree.
//
// The package contains the lexer, the token definitions, the AST node
// types and a recursive-descent parser with single-token lookahead.
// Nothing here resolves names or checks types; that happens in
// internal/resolver and internal/compiler. Parse errors carry the
// source position and an expected-token description.
package syntax
