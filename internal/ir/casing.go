package ir

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// titleCaser capitalizes a segment without lowering the rest, so
// acronym segments survive ("id" -> "Id", "ID" -> "ID").
var titleCaser = cases.Title(language.English, cases.NoLower)

// LowerCamel renders a declared identifier in lowerCamelCase: snake
// segments after the first are title-cased and the leading rune is
// lowered ("invoice_id" -> "invoiceId", "CreateInvoice" ->
// "createInvoice").
func LowerCamel(name string) string {
	var b strings.Builder
	wrote := false
	for _, p := range strings.Split(name, "_") {
		if p == "" {
			continue
		}
		if !wrote {
			r, size := utf8.DecodeRuneInString(p)
			b.WriteRune(unicode.ToLower(r))
			b.WriteString(p[size:])
			wrote = true
			continue
		}
		b.WriteString(titleCaser.String(p))
	}
	if !wrote {
		return name
	}
	return b.String()
}

// UpperCamel renders a declared identifier in UpperCamelCase
// ("invoice_id" -> "InvoiceId", "string" -> "String").
func UpperCamel(name string) string {
	var b strings.Builder
	wrote := false
	for _, p := range strings.Split(name, "_") {
		if p == "" {
			continue
		}
		b.WriteString(titleCaser.String(p))
		wrote = true
	}
	if !wrote {
		return name
	}
	return b.String()
}
