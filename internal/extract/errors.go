package extract

import (
	"fmt"

	"github.com/mvp-joe/archextract/internal/syntax"
)

// ExtractionError reports a rule that could not be evaluated against a node:
// a non-literal value, an out-of-range index or a missing structural element.
type ExtractionError struct {
	File    string
	Line    int
	Message string
}

func (e *ExtractionError) Error() string {
	if e.File == "" {
		return e.Message
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// errorAt builds an ExtractionError located at node.
func errorAt(node syntax.Node, format string, args ...any) *ExtractionError {
	e := &ExtractionError{Message: fmt.Sprintf(format, args...)}
	if node == nil {
		return e
	}
	if f := node.SourceFile(); f != nil {
		e.File = f.Path()
	}
	e.Line = node.StartLine()
	return e
}
