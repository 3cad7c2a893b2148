package typescript

import (
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/archextract/internal/syntax"
)

// expr is a materialized expression. Only literals, object literals and
// array literals carry structure; anything else is kept as source text.
type expr struct {
	text   string
	line   int
	lit    *syntax.Literal
	fields map[string]*expr
	elems  []*expr
}

var _ syntax.Expression = (*expr)(nil)

func (e *expr) Literal() (syntax.Literal, bool) {
	if e.lit == nil {
		return syntax.Literal{}, false
	}
	return *e.lit, true
}

func (e *expr) Field(key string) (syntax.Expression, bool) {
	v, ok := e.fields[key]
	if !ok {
		return nil, false
	}
	return v, true
}

func (e *expr) Index(i int) (syntax.Expression, bool) {
	if e.elems == nil || i < 0 || i >= len(e.elems) {
		return nil, false
	}
	return e.elems[i], true
}

func (e *expr) Text() string { return e.text }
func (e *expr) Line() int    { return e.line }

func (b *builder) expression(n *sitter.Node) *expr {
	e := &expr{text: extractNodeText(n, b.source), line: startLine(n)}

	switch n.Kind() {
	case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
		// `({...})`, `{...} as const`, `x!` keep the inner shape.
		if n.NamedChildCount() > 0 {
			inner := b.expression(n.NamedChild(0))
			inner.text = e.text
			return inner
		}
	case "string":
		lit := syntax.StringLiteral(unquote(e.text))
		e.lit = &lit
	case "template_string":
		if findChildByType(n, "template_substitution") == nil {
			lit := syntax.StringLiteral(strings.TrimSuffix(strings.TrimPrefix(e.text, "`"), "`"))
			e.lit = &lit
		}
	case "number":
		if f, ok := parseNumber(e.text); ok {
			lit := syntax.Literal{Kind: syntax.LiteralNumber, Num: f, Raw: e.text}
			e.lit = &lit
		}
	case "unary_expression":
		op := n.ChildByFieldName("operator")
		arg := n.ChildByFieldName("argument")
		if op != nil && arg != nil && arg.Kind() == "number" {
			sign := extractNodeText(op, b.source)
			if f, ok := parseNumber(extractNodeText(arg, b.source)); ok && (sign == "-" || sign == "+") {
				if sign == "-" {
					f = -f
				}
				lit := syntax.Literal{Kind: syntax.LiteralNumber, Num: f, Raw: e.text}
				e.lit = &lit
			}
		}
	case "true", "false":
		lit := syntax.BoolLiteral(n.Kind() == "true")
		e.lit = &lit
	case "object":
		e.fields = map[string]*expr{}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			child := n.NamedChild(i)
			switch child.Kind() {
			case "pair":
				key, value := child.ChildByFieldName("key"), child.ChildByFieldName("value")
				if key == nil || value == nil || key.Kind() == "computed_property_name" {
					continue
				}
				e.fields[unquote(extractNodeText(key, b.source))] = b.expression(value)
			case "shorthand_property_identifier":
				name := extractNodeText(child, b.source)
				e.fields[name] = &expr{text: name, line: startLine(child)}
			}
		}
	case "array":
		e.elems = []*expr{}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			child := n.NamedChild(i)
			if child.Kind() == "comment" {
				continue
			}
			e.elems = append(e.elems, b.expression(child))
		}
	}
	return e
}

func parseNumber(s string) (float64, bool) {
	clean := strings.ReplaceAll(s, "_", "")
	if f, err := strconv.ParseFloat(clean, 64); err == nil {
		return f, true
	}
	// 0x, 0o and 0b prefixes.
	if i, err := strconv.ParseInt(clean, 0, 64); err == nil {
		return float64(i), true
	}
	return 0, false
}

// unquote strips the quotes of a string literal and resolves escapes.
// Unquoted input is returned unchanged.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	q := s[0]
	if (q != '"' && q != '\'' && q != '`') || s[len(s)-1] != q {
		return s
	}
	inner := s[1 : len(s)-1]
	if !strings.Contains(inner, `\`) {
		return inner
	}
	escaped := strings.ReplaceAll(inner, `\'`, `'`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, `\\"`, `\"`)
	if out, err := strconv.Unquote(`"` + escaped + `"`); err == nil {
		return out
	}
	return inner
}
