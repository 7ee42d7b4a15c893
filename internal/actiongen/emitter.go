package actiongen

import (
	"fmt"
	"strings"
)

// emitter accumulates indented SQL lines.
type emitter struct {
	b      strings.Builder
	indent int
}

// line writes one indented line. An empty format emits a blank line.
func (em *emitter) line(format string, args ...any) {
	if format == "" {
		em.b.WriteByte('\n')
		return
	}
	for i := 0; i < em.indent; i++ {
		em.b.WriteString("    ")
	}
	fmt.Fprintf(&em.b, format, args...)
	em.b.WriteByte('\n')
}

func (em *emitter) String() string {
	return em.b.String()
}
