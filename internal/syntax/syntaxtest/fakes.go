// Package syntaxtest provides in-memory implementations of the syntax
// capability interfaces for tests.
package syntaxtest

import (
	"strconv"

	"github.com/mvp-joe/archextract/internal/syntax"
)

// File is a fake syntax.SourceFile.
type File struct {
	FilePath string
	// Imports maps an imported identifier to its module specifier.
	Imports map[string]string
}

func (f *File) Path() string { return f.FilePath }

func (f *File) ImportSource(identifier string) (string, bool) {
	s, ok := f.Imports[identifier]
	return s, ok
}

// Base holds the fields every fake node shares.
type Base struct {
	File       *File
	Line       int
	ParentNode syntax.Node
}

func (b *Base) SourceFile() syntax.SourceFile {
	if b.File == nil {
		return nil
	}
	return b.File
}

func (b *Base) StartLine() int { return b.Line }

// Class is a fake class declaration.
type Class struct {
	Base
	ClassName      string
	Decs           []syntax.Decorator
	Tags           []string
	Extends        string
	ImplementsList []string
	Ctors          []syntax.MethodShaped
	// TypeArgs maps a heritage base name to its type arguments; the "" key
	// answers unfiltered lookups.
	TypeArgs       map[string][]string
	Properties     map[string]syntax.Expression
}

func (c *Class) Parent() syntax.Node                 { return c.ParentNode }
func (c *Class) Name() (string, bool)                { return c.ClassName, c.ClassName != "" }
func (c *Class) Decorators() []syntax.Decorator      { return c.Decs }
func (c *Class) DocTags() []string                   { return c.Tags }
func (c *Class) Heritage() (string, bool)            { return c.Extends, c.Extends != "" }
func (c *Class) Implements() []string                { return c.ImplementsList }
func (c *Class) Constructors() []syntax.MethodShaped { return c.Ctors }
func (c *Class) TypeArguments(h string) []string     { return c.TypeArgs[h] }

func (c *Class) Property(name string) (syntax.Expression, bool) {
	e, ok := c.Properties[name]
	return e, ok
}

// Method is a fake class method or constructor.
type Method struct {
	Base
	MethodName string
	Decs       []syntax.Decorator
	Tags       []string
	Params     []syntax.Parameter
	Returns    string
}

func (m *Method) Parent() syntax.Node            { return m.ParentNode }
func (m *Method) Name() (string, bool)           { return m.MethodName, m.MethodName != "" }
func (m *Method) Decorators() []syntax.Decorator { return m.Decs }
func (m *Method) DocTags() []string              { return m.Tags }
func (m *Method) Parameters() []syntax.Parameter { return m.Params }
func (m *Method) ReturnType() (string, bool)     { return m.Returns, m.Returns != "" }

// Function is a fake top-level function. It is not decoratable.
type Function struct {
	Base
	FuncName string
	Tags     []string
	Params   []syntax.Parameter
	Returns  string
}

func (f *Function) Parent() syntax.Node            { return f.ParentNode }
func (f *Function) Name() (string, bool)           { return f.FuncName, f.FuncName != "" }
func (f *Function) DocTags() []string              { return f.Tags }
func (f *Function) Parameters() []syntax.Parameter { return f.Params }
func (f *Function) ReturnType() (string, bool)     { return f.Returns, f.Returns != "" }

// Bare is a node with no capabilities beyond syntax.Node.
type Bare struct {
	Base
}

func (b *Bare) Parent() syntax.Node { return b.ParentNode }

// Expr is a fake expression. Exactly one of Lit, Object, Array or Code
// should be set.
type Expr struct {
	Lit    *syntax.Literal
	Object map[string]*Expr
	Array  []*Expr
	Code   string
	AtLine int
}

func (e *Expr) Literal() (syntax.Literal, bool) {
	if e.Lit == nil {
		return syntax.Literal{}, false
	}
	return *e.Lit, true
}

func (e *Expr) Field(key string) (syntax.Expression, bool) {
	v, ok := e.Object[key]
	if !ok {
		return nil, false
	}
	return v, true
}

func (e *Expr) Index(i int) (syntax.Expression, bool) {
	if i < 0 || i >= len(e.Array) {
		return nil, false
	}
	return e.Array[i], true
}

func (e *Expr) Text() string {
	if e.Lit != nil {
		if e.Lit.Kind == syntax.LiteralString {
			return strconv.Quote(e.Lit.Str)
		}
		return e.Lit.String()
	}
	return e.Code
}

func (e *Expr) Line() int { return e.AtLine }

// Str returns a string literal expression.
func Str(s string) *Expr {
	l := syntax.StringLiteral(s)
	return &Expr{Lit: &l}
}

// Num returns a numeric literal expression.
func Num(n float64) *Expr {
	l := syntax.NumberLiteral(n)
	return &Expr{Lit: &l}
}

// Bool returns a boolean literal expression.
func Bool(b bool) *Expr {
	l := syntax.BoolLiteral(b)
	return &Expr{Lit: &l}
}

// Code returns a non-literal expression with the given source text.
func Code(text string) *Expr {
	return &Expr{Code: text}
}

// Object returns an object literal expression.
func Object(fields map[string]*Expr) *Expr {
	return &Expr{Object: fields, Code: "{...}"}
}

// Dec builds a decorator whose identifier equals its name.
func Dec(name string, args ...*Expr) syntax.Decorator {
	exprs := make([]syntax.Expression, len(args))
	for i, a := range args {
		exprs[i] = a
	}
	return syntax.Decorator{Name: name, Identifier: name, Arguments: exprs}
}
