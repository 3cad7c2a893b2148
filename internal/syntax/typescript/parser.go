// Package typescript binds tree-sitter's TypeScript and TSX grammars to the
// capability interfaces of package syntax.
//
// Parse walks a file once and materializes every candidate declaration into
// plain Go values, so the tree-sitter tree is released before Parse returns
// and the resulting nodes are safe to share between goroutines.
package typescript

import (
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tsgrammar "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/mvp-joe/archextract/internal/syntax"
)

var (
	typescriptLanguage = sitter.NewLanguage(tsgrammar.LanguageTypescript())
	tsxLanguage        = sitter.NewLanguage(tsgrammar.LanguageTSX())
)

// Extensions lists the file extensions Parse understands.
var Extensions = []string{".ts", ".tsx", ".mts", ".cts"}

// Supported reports whether path has an extension Parse understands.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func languageFor(path string) *sitter.Language {
	if strings.EqualFold(filepath.Ext(path), ".tsx") {
		return tsxLanguage
	}
	return typescriptLanguage
}

// Parse parses source as the file at relPath (workspace-relative, used for
// fromFilePath and grammar selection).
func Parse(relPath string, source []byte) (*File, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(languageFor(relPath)); err != nil {
		return nil, fmt.Errorf("failed to set typescript language: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse typescript file: %s", relPath)
	}
	defer tree.Close()

	b := &builder{
		source: source,
		file: &File{
			path:    filepath.ToSlash(relPath),
			imports: map[string]string{},
		},
	}
	b.program(tree.RootNode())
	return b.file, nil
}

// builder carries the parse state of one file.
type builder struct {
	source []byte
	file   *File
}

func (b *builder) program(root *sitter.Node) {
	for i := uint(0); i < root.NamedChildCount(); i++ {
		b.statement(root.NamedChild(i), nil)
	}
}

// statement handles a top-level statement. outer is the wrapping
// export_statement, if any.
func (b *builder) statement(n, outer *sitter.Node) {
	switch n.Kind() {
	case "import_statement":
		b.importStatement(n)
	case "export_statement":
		decl := n.ChildByFieldName("declaration")
		if decl == nil {
			decl = n.ChildByFieldName("value")
		}
		if decl != nil {
			b.statement(decl, n)
		}
	case "class_declaration", "abstract_class_declaration", "class":
		b.class(n, outer)
	case "function_declaration", "generator_function_declaration":
		b.function(n, n, outer)
	case "lexical_declaration", "variable_declaration":
		for _, decl := range findChildrenByType(n, "variable_declarator") {
			value := decl.ChildByFieldName("value")
			if value == nil {
				continue
			}
			switch value.Kind() {
			case "arrow_function", "function_expression", "function":
				anchor := n
				if outer != nil {
					anchor = outer
				}
				b.functionNamed(decl.ChildByFieldName("name"), value, anchor)
			}
		}
	}
}

func (b *builder) importStatement(n *sitter.Node) {
	src := n.ChildByFieldName("source")
	if src == nil {
		return
	}
	from := unquote(extractNodeText(src, b.source))

	clause := findChildByType(n, "import_clause")
	if clause == nil {
		return
	}
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		child := clause.NamedChild(i)
		switch child.Kind() {
		case "identifier":
			b.file.imports[extractNodeText(child, b.source)] = from
		case "namespace_import":
			if id := findChildByType(child, "identifier"); id != nil {
				b.file.imports[extractNodeText(id, b.source)] = from
			}
		case "named_imports":
			for _, spec := range findChildrenByType(child, "import_specifier") {
				local := spec.ChildByFieldName("alias")
				if local == nil {
					local = spec.ChildByFieldName("name")
				}
				if local != nil {
					b.file.imports[unquote(extractNodeText(local, b.source))] = from
				}
			}
		}
	}
}

func (b *builder) class(n, outer *sitter.Node) {
	anchor := n
	if outer != nil {
		anchor = outer
	}

	c := &Class{
		base:       base{file: b.file, line: startLine(anchor)},
		properties: map[string]syntax.Expression{},
	}
	if name := n.ChildByFieldName("name"); name != nil {
		c.name = extractNodeText(name, b.source)
	}
	if outer != nil {
		c.decorators = b.decorators(findChildrenByType(outer, "decorator"))
	}
	c.decorators = append(c.decorators, b.decorators(findChildrenByType(n, "decorator"))...)
	c.docTags = b.docTags(anchor)

	if heritage := findChildByType(n, "class_heritage"); heritage != nil {
		b.heritage(c, heritage)
	}

	b.file.candidates = append(b.file.candidates, c)

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	var pending []*sitter.Node
	for i := uint(0); i < body.NamedChildCount(); i++ {
		member := body.NamedChild(i)
		switch member.Kind() {
		case "decorator":
			pending = append(pending, member)
			continue
		case "comment":
			continue
		case "method_definition":
			b.method(c, member, pending)
		case "public_field_definition", "field_definition":
			name := member.ChildByFieldName("name")
			if name == nil {
				name = member.ChildByFieldName("property")
			}
			value := member.ChildByFieldName("value")
			if name != nil && value != nil {
				c.properties[unquote(extractNodeText(name, b.source))] = b.expression(value)
			}
		}
		pending = nil
	}
}

func (b *builder) heritage(c *Class, n *sitter.Node) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		clause := n.NamedChild(i)
		switch clause.Kind() {
		case "extends_clause":
			var current *heritageEntry
			for j := uint(0); j < clause.NamedChildCount(); j++ {
				child := clause.NamedChild(j)
				if child.Kind() == "type_arguments" && current != nil {
					current.args = b.typeArguments(child)
					current.text += extractNodeText(child, b.source)
					continue
				}
				c.extends = append(c.extends, heritageEntry{
					base: extractNodeText(child, b.source),
					text: extractNodeText(child, b.source),
				})
				current = &c.extends[len(c.extends)-1]
			}
		case "implements_clause":
			for j := uint(0); j < clause.NamedChildCount(); j++ {
				child := clause.NamedChild(j)
				entry := heritageEntry{text: extractNodeText(child, b.source)}
				entry.base = entry.text
				if child.Kind() == "generic_type" {
					if name := child.ChildByFieldName("name"); name != nil {
						entry.base = extractNodeText(name, b.source)
					}
					if args := child.ChildByFieldName("type_arguments"); args != nil {
						entry.args = b.typeArguments(args)
					}
				}
				c.implements = append(c.implements, entry)
			}
		}
	}
}

func (b *builder) typeArguments(n *sitter.Node) []string {
	var args []string
	for i := uint(0); i < n.NamedChildCount(); i++ {
		args = append(args, extractNodeText(n.NamedChild(i), b.source))
	}
	return args
}

func (b *builder) method(c *Class, n *sitter.Node, pending []*sitter.Node) {
	line := startLine(n)
	if len(pending) > 0 {
		line = startLine(pending[0])
	}

	m := &Method{
		base: base{file: b.file, line: line, parent: c},
	}
	if name := n.ChildByFieldName("name"); name != nil {
		m.name = unquote(extractNodeText(name, b.source))
	}
	m.decorators = append(b.decorators(pending), b.decorators(findChildrenByType(n, "decorator"))...)
	anchor := n
	if len(pending) > 0 {
		anchor = pending[0]
	}
	m.docTags = b.docTags(anchor)
	m.params = b.parameters(n)
	m.returnType, m.hasReturn = b.returnType(n)

	if m.name == "constructor" {
		c.constructors = append(c.constructors, m)
		return
	}
	c.methods = append(c.methods, m)
	b.file.candidates = append(b.file.candidates, m)
}

func (b *builder) function(n, anchor, outer *sitter.Node) {
	if outer != nil {
		anchor = outer
	}
	b.functionNamed(n.ChildByFieldName("name"), n, anchor)
}

// functionNamed records a function whose name comes from nameNode, which is
// the declaration's own name or the declarator of `const f = () => ...`.
func (b *builder) functionNamed(nameNode, fn, anchor *sitter.Node) {
	f := &Function{
		base: base{file: b.file, line: startLine(anchor)},
	}
	if nameNode != nil && nameNode.Kind() == "identifier" {
		f.name = extractNodeText(nameNode, b.source)
	}
	f.docTags = b.docTags(anchor)
	f.params = b.parameters(fn)
	f.returnType, f.hasReturn = b.returnType(fn)
	b.file.candidates = append(b.file.candidates, f)
}

func (b *builder) parameters(fn *sitter.Node) []syntax.Parameter {
	params := []syntax.Parameter{}
	list := fn.ChildByFieldName("parameters")
	if list == nil {
		// `x => ...`
		if single := fn.ChildByFieldName("parameter"); single != nil {
			params = append(params, syntax.Parameter{Name: extractNodeText(single, b.source)})
		}
		return params
	}
	for i := uint(0); i < list.NamedChildCount(); i++ {
		p := list.NamedChild(i)
		switch p.Kind() {
		case "required_parameter", "optional_parameter":
		default:
			continue
		}
		param := syntax.Parameter{}
		if pattern := p.ChildByFieldName("pattern"); pattern != nil {
			param.Name = strings.TrimPrefix(extractNodeText(pattern, b.source), "...")
		}
		if typ := p.ChildByFieldName("type"); typ != nil {
			param.Type = annotationText(extractNodeText(typ, b.source))
			param.HasType = param.Type != ""
		}
		params = append(params, param)
	}
	return params
}

func (b *builder) returnType(fn *sitter.Node) (string, bool) {
	rt := fn.ChildByFieldName("return_type")
	if rt == nil {
		return "", false
	}
	text := annotationText(extractNodeText(rt, b.source))
	return text, text != ""
}

func (b *builder) decorators(nodes []*sitter.Node) []syntax.Decorator {
	var out []syntax.Decorator
	for _, n := range nodes {
		out = append(out, b.decorator(n))
	}
	return out
}

func (b *builder) decorator(n *sitter.Node) syntax.Decorator {
	dec := syntax.Decorator{Line: startLine(n)}
	if n.NamedChildCount() == 0 {
		return dec
	}
	target := n.NamedChild(0)
	for target.Kind() == "parenthesized_expression" && target.NamedChildCount() > 0 {
		target = target.NamedChild(0)
	}
	if target.Kind() == "call_expression" {
		if args := target.ChildByFieldName("arguments"); args != nil {
			dec.Arguments = []syntax.Expression{}
			for i := uint(0); i < args.NamedChildCount(); i++ {
				arg := args.NamedChild(i)
				if arg.Kind() == "comment" {
					continue
				}
				dec.Arguments = append(dec.Arguments, b.expression(arg))
			}
		}
		if fn := target.ChildByFieldName("function"); fn != nil {
			target = fn
		}
	}
	dec.Name, dec.Identifier = b.calleeNames(target)
	return dec
}

// calleeNames returns the rightmost and the root identifier of a decorator
// callee (`Get`/`Get` for `Get`, `Get`/`http` for `http.Get`).
func (b *builder) calleeNames(n *sitter.Node) (name, root string) {
	if n.Kind() != "member_expression" {
		text := extractNodeText(n, b.source)
		return text, text
	}
	if prop := n.ChildByFieldName("property"); prop != nil {
		name = extractNodeText(prop, b.source)
	}
	obj := n
	for obj.Kind() == "member_expression" {
		next := obj.ChildByFieldName("object")
		if next == nil {
			break
		}
		obj = next
	}
	return name, extractNodeText(obj, b.source)
}

// docTags collects the tags of the JSDoc comments directly preceding anchor.
// Decorators and plain comments in between are skipped.
func (b *builder) docTags(anchor *sitter.Node) []string {
	var tags []string
	for prev := anchor.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		switch prev.Kind() {
		case "decorator":
			continue
		case "comment":
			text := extractNodeText(prev, b.source)
			if strings.HasPrefix(text, "/**") {
				tags = append(parseDocTags(text), tags...)
			}
			continue
		}
		break
	}
	return tags
}

func startLine(n *sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

// annotationText strips the leading ':' of a type annotation.
func annotationText(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), ":"))
}

// extractNodeText extracts the text content of a tree-sitter node.
func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// findChildrenByType finds all child nodes with the given type.
func findChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	var results []*sitter.Node
	if node == nil {
		return results
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child.Kind() == nodeType {
			results = append(results, child)
		}
	}
	return results
}
