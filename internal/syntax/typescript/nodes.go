package typescript

import "github.com/mvp-joe/archextract/internal/syntax"

// File is a parsed TypeScript source file.
type File struct {
	path       string
	imports    map[string]string
	candidates []syntax.Node
}

// Path implements syntax.SourceFile.
func (f *File) Path() string { return f.path }

// ImportSource implements syntax.SourceFile.
func (f *File) ImportSource(identifier string) (string, bool) {
	src, ok := f.imports[identifier]
	return src, ok
}

// Candidates returns the declarations rules may match, in source order:
// classes, class methods (constructors excluded), function declarations and
// functions bound to variables.
func (f *File) Candidates() []syntax.Node { return f.candidates }

type base struct {
	file   *File
	line   int
	parent syntax.Node
}

func (b *base) SourceFile() syntax.SourceFile { return b.file }
func (b *base) StartLine() int                { return b.line }
func (b *base) Parent() syntax.Node           { return b.parent }

type heritageEntry struct {
	base string // callee or type name without type arguments
	text string
	args []string
}

// Class is a class declaration.
type Class struct {
	base
	name         string
	decorators   []syntax.Decorator
	docTags      []string
	extends      []heritageEntry
	implements   []heritageEntry
	constructors []syntax.MethodShaped
	methods      []*Method
	properties   map[string]syntax.Expression
}

var (
	_ syntax.Nameable    = (*Class)(nil)
	_ syntax.Decoratable = (*Class)(nil)
	_ syntax.DocBearing  = (*Class)(nil)
	_ syntax.ClassShaped = (*Class)(nil)
)

func (c *Class) Name() (string, bool)                { return c.name, c.name != "" }
func (c *Class) Decorators() []syntax.Decorator      { return c.decorators }
func (c *Class) DocTags() []string                   { return c.docTags }
func (c *Class) Constructors() []syntax.MethodShaped { return c.constructors }

// Methods returns the class methods in source order, constructors excluded.
func (c *Class) Methods() []*Method { return c.methods }

func (c *Class) Heritage() (string, bool) {
	if len(c.extends) == 0 {
		return "", false
	}
	return c.extends[0].text, true
}

func (c *Class) Implements() []string {
	out := make([]string, 0, len(c.implements))
	for _, e := range c.implements {
		out = append(out, e.text)
	}
	return out
}

func (c *Class) TypeArguments(heritage string) []string {
	for _, list := range [][]heritageEntry{c.extends, c.implements} {
		for _, e := range list {
			if heritage == "" && len(e.args) > 0 {
				return e.args
			}
			if heritage != "" && (e.base == heritage || e.text == heritage) {
				return e.args
			}
		}
	}
	return nil
}

func (c *Class) Property(name string) (syntax.Expression, bool) {
	e, ok := c.properties[name]
	return e, ok
}

// Method is a class method or constructor.
type Method struct {
	base
	name       string
	decorators []syntax.Decorator
	docTags    []string
	params     []syntax.Parameter
	returnType string
	hasReturn  bool
}

var (
	_ syntax.Nameable     = (*Method)(nil)
	_ syntax.Decoratable  = (*Method)(nil)
	_ syntax.DocBearing   = (*Method)(nil)
	_ syntax.MethodShaped = (*Method)(nil)
)

func (m *Method) Name() (string, bool)           { return m.name, m.name != "" }
func (m *Method) Decorators() []syntax.Decorator { return m.decorators }
func (m *Method) DocTags() []string              { return m.docTags }
func (m *Method) Parameters() []syntax.Parameter { return m.params }
func (m *Method) ReturnType() (string, bool)     { return m.returnType, m.hasReturn }

// Function is a function declaration or a function bound to a variable.
// Functions cannot carry decorators.
type Function struct {
	base
	name       string
	docTags    []string
	params     []syntax.Parameter
	returnType string
	hasReturn  bool
}

var (
	_ syntax.Nameable     = (*Function)(nil)
	_ syntax.DocBearing   = (*Function)(nil)
	_ syntax.MethodShaped = (*Function)(nil)
)

func (f *Function) Name() (string, bool)           { return f.name, f.name != "" }
func (f *Function) DocTags() []string              { return f.docTags }
func (f *Function) Parameters() []syntax.Parameter { return f.params }
func (f *Function) ReturnType() (string, bool)     { return f.returnType, f.hasReturn }
