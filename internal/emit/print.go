package emit

import (
	"bytes"
	"fmt"
)

// printer accumulates line-oriented text output with two-space indent
// levels. Writes to the underlying buffer cannot fail, so the text
// emitters stay error-free until I/O.
type printer struct {
	buf    bytes.Buffer
	indent int
}

func (p *printer) line(s string) {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString("  ")
	}
	p.buf.WriteString(s)
	p.buf.WriteByte('\n')
}

func (p *printer) linef(format string, args ...any) {
	p.line(fmt.Sprintf(format, args...))
}

func (p *printer) blank() {
	p.buf.WriteByte('\n')
}

func (p *printer) bytes() []byte { return p.buf.Bytes() }
