package format

import "strings"

// IndentString is one level of indentation in formatted output
const IndentString = "    "

// Printer manages formatting state and output
type Printer struct {
	output strings.Builder
	indent int
}

// NewPrinter creates a new Printer instance
func NewPrinter() *Printer {
	return &Printer{}
}

// String returns the formatted output
func (p *Printer) String() string {
	return p.output.String()
}

// Reset clears the printer state for reuse
func (p *Printer) Reset() {
	p.output.Reset()
	p.indent = 0
}

func (p *Printer) write(s string) {
	p.output.WriteString(s)
}

func (p *Printer) newline() {
	p.output.WriteString("\n")
}

func (p *Printer) writeIndent() {
	p.output.WriteString(strings.Repeat(IndentString, p.indent))
}

func (p *Printer) indentInc() {
	p.indent++
}

func (p *Printer) indentDec() {
	if p.indent > 0 {
		p.indent--
	}
}
