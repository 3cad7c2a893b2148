// Package predicate evaluates rule predicates against AST nodes.
//
// Evaluation is total: a predicate that asks about a capability the node does
// not have (a name on an anonymous node, decorators on a function) is simply
// false. Nothing here mutates the node or keeps state between calls.
package predicate

import (
	"strings"

	"github.com/mvp-joe/archextract/internal/rules"
	"github.com/mvp-joe/archextract/internal/syntax"
)

// Evaluate reports whether node satisfies p.
func Evaluate(node syntax.Node, p rules.Predicate) bool {
	if node == nil || p == nil {
		return false
	}

	switch p := p.(type) {
	case *rules.HasDecorator:
		return hasDecorator(node, p)
	case *rules.HasJSDoc:
		return hasJSDoc(node, p.Tag)
	case *rules.ExtendsClass:
		class, ok := node.(syntax.ClassShaped)
		if !ok {
			return false
		}
		base, ok := class.Heritage()
		return ok && heritageMatches(base, p.Name)
	case *rules.ImplementsInterface:
		class, ok := node.(syntax.ClassShaped)
		if !ok {
			return false
		}
		for _, iface := range class.Implements() {
			if heritageMatches(iface, p.Name) {
				return true
			}
		}
		return false
	case *rules.NameEndsWith:
		name, ok := nameOf(node)
		return ok && strings.HasSuffix(name, p.Suffix)
	case *rules.NameMatches:
		name, ok := nameOf(node)
		if !ok {
			return false
		}
		re, err := p.Regexp()
		if err != nil {
			return false
		}
		return re.MatchString(name)
	case *rules.InClassWith:
		return inClassWith(node, p.Predicate)
	case *rules.And:
		for _, child := range p.Predicates {
			if !Evaluate(node, child) {
				return false
			}
		}
		return true
	case *rules.Or:
		for _, child := range p.Predicates {
			if Evaluate(node, child) {
				return true
			}
		}
		return false
	}

	// Unknown variants cannot come out of the decoder.
	return false
}

func hasDecorator(node syntax.Node, p *rules.HasDecorator) bool {
	decoratable, ok := node.(syntax.Decoratable)
	if !ok {
		return false
	}

	for _, dec := range decoratable.Decorators() {
		if !contains(p.Names, dec.Name) {
			continue
		}
		if p.From == "" {
			return true
		}
		if importedFrom(node, dec) == p.From {
			return true
		}
	}
	return false
}

// importedFrom resolves the module specifier the decorator's root identifier
// was imported from, or "" when it was not imported by name.
func importedFrom(node syntax.Node, dec syntax.Decorator) string {
	file := node.SourceFile()
	if file == nil {
		return ""
	}
	ident := dec.Identifier
	if ident == "" {
		ident = dec.Name
	}
	source, ok := file.ImportSource(ident)
	if !ok {
		return ""
	}
	return source
}

func hasJSDoc(node syntax.Node, tag string) bool {
	doc, ok := node.(syntax.DocBearing)
	if !ok {
		return false
	}
	tag = strings.TrimPrefix(tag, "@")
	for _, t := range doc.DocTags() {
		if t == tag {
			return true
		}
	}
	return false
}

func inClassWith(node syntax.Node, inner rules.Predicate) bool {
	if _, ok := node.(syntax.MethodShaped); !ok {
		return false
	}
	if _, ok := node.(syntax.ClassShaped); ok {
		return false
	}
	parent := node.Parent()
	if parent == nil {
		return false
	}
	if _, ok := parent.(syntax.ClassShaped); !ok {
		return false
	}
	return Evaluate(parent, inner)
}

func nameOf(node syntax.Node) (string, bool) {
	named, ok := node.(syntax.Nameable)
	if !ok {
		return "", false
	}
	name, ok := named.Name()
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// heritageMatches compares a heritage clause entry with name. A name without
// type arguments matches the entry's expression whatever its type arguments,
// so `EventHandler` matches `EventHandler<OrderPlaced>`; a name with type
// arguments must match the full text.
func heritageMatches(entry, name string) bool {
	if entry == name {
		return true
	}
	if name == "" || strings.Contains(name, "<") {
		return false
	}
	i := strings.IndexByte(entry, '<')
	return i >= 0 && strings.TrimSpace(entry[:i]) == name
}
