package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/archextract/internal/rules"
	"github.com/mvp-joe/archextract/internal/syntax"
	fake "github.com/mvp-joe/archextract/internal/syntax/syntaxtest"
)

// Test Plan for Evaluate:
// - hasDecorator by single name, name set, and import source
// - hasJSDoc exact tag match
// - extendsClass / implementsInterface on classes only, by full text or by
//   the expression without type arguments
// - nameEndsWith / nameMatches on nameable nodes, false on anonymous or unnamed-capable nodes
// - inClassWith only for methods whose parent class satisfies the nested predicate
// - and/or semantics including empty operand lists

func fixture() (*fake.File, *fake.Class, *fake.Method, *fake.Function) {
	file := &fake.File{
		FilePath: "src/orders/orders.controller.ts",
		Imports: map[string]string{
			"Controller": "@nestjs/common",
			"Get":        "@nestjs/common",
			"Post":       "./local-decorators",
		},
	}
	class := &fake.Class{
		Base:           fake.Base{File: file, Line: 5},
		ClassName:      "OrdersController",
		Decs:           []syntax.Decorator{fake.Dec("Controller", fake.Str("orders"))},
		Tags:           []string{"api", "deprecated"},
		Extends:        "BaseController",
		ImplementsList: []string{"OnModuleInit", "Handler<OrderPlaced>"},
	}
	method := &fake.Method{
		Base:       fake.Base{File: file, Line: 9, ParentNode: class},
		MethodName: "getOrder",
		Decs:       []syntax.Decorator{fake.Dec("Get", fake.Str(":id")), fake.Dec("Post")},
		Params:     []syntax.Parameter{{Name: "id", Type: "string", HasType: true}},
		Returns:    "Promise<Order>",
	}
	fn := &fake.Function{
		Base:     fake.Base{File: file, Line: 30},
		FuncName: "placeOrder",
		Tags:     []string{"useCase"},
	}
	return file, class, method, fn
}

func TestEvaluate_HasDecorator(t *testing.T) {
	t.Parallel()
	_, class, method, fn := fixture()

	tests := []struct {
		name string
		node syntax.Node
		pred *rules.HasDecorator
		want bool
	}{
		{"class decorator", class, &rules.HasDecorator{Names: []string{"Controller"}}, true},
		{"name set", method, &rules.HasDecorator{Names: []string{"Put", "Get"}}, true},
		{"missing decorator", method, &rules.HasDecorator{Names: []string{"Delete"}}, false},
		{"import source matches", method, &rules.HasDecorator{Names: []string{"Get"}, From: "@nestjs/common"}, true},
		{"import source differs", method, &rules.HasDecorator{Names: []string{"Post"}, From: "@nestjs/common"}, false},
		{"second decorator satisfies source", method, &rules.HasDecorator{Names: []string{"Get", "Post"}, From: "./local-decorators"}, true},
		{"functions are not decoratable", fn, &rules.HasDecorator{Names: []string{"Get"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Evaluate(tt.node, tt.pred))
		})
	}
}

func TestEvaluate_HasDecoratorUnimportedIdentifier(t *testing.T) {
	t.Parallel()

	file := &fake.File{FilePath: "a.ts", Imports: map[string]string{"http": "@app/http"}}
	method := &fake.Method{
		Base:       fake.Base{File: file},
		MethodName: "list",
		Decs: []syntax.Decorator{
			{Name: "Get", Identifier: "http"},
			{Name: "Local", Identifier: "Local"},
		},
	}

	assert.True(t, Evaluate(method, &rules.HasDecorator{Names: []string{"Get"}, From: "@app/http"}))
	assert.False(t, Evaluate(method, &rules.HasDecorator{Names: []string{"Local"}, From: "@app/http"}))

	noFile := &fake.Method{MethodName: "x", Decs: []syntax.Decorator{fake.Dec("Get")}}
	assert.False(t, Evaluate(noFile, &rules.HasDecorator{Names: []string{"Get"}, From: "@app/http"}))
}

func TestEvaluate_HasJSDoc(t *testing.T) {
	t.Parallel()
	_, class, method, fn := fixture()

	assert.True(t, Evaluate(class, &rules.HasJSDoc{Tag: "api"}))
	assert.True(t, Evaluate(class, &rules.HasJSDoc{Tag: "@api"}))
	assert.False(t, Evaluate(class, &rules.HasJSDoc{Tag: "ap"}))
	assert.False(t, Evaluate(method, &rules.HasJSDoc{Tag: "api"}))
	assert.True(t, Evaluate(fn, &rules.HasJSDoc{Tag: "useCase"}))
	assert.False(t, Evaluate(&fake.Bare{}, &rules.HasJSDoc{Tag: "useCase"}))
}

func TestEvaluate_Heritage(t *testing.T) {
	t.Parallel()
	_, class, method, _ := fixture()

	assert.True(t, Evaluate(class, &rules.ExtendsClass{Name: "BaseController"}))
	assert.False(t, Evaluate(class, &rules.ExtendsClass{Name: "Base"}))
	assert.False(t, Evaluate(method, &rules.ExtendsClass{Name: "BaseController"}))

	assert.True(t, Evaluate(class, &rules.ImplementsInterface{Name: "OnModuleInit"}))
	assert.True(t, Evaluate(class, &rules.ImplementsInterface{Name: "Handler<OrderPlaced>"}))
	assert.True(t, Evaluate(class, &rules.ImplementsInterface{Name: "Handler"}))
	assert.False(t, Evaluate(class, &rules.ImplementsInterface{Name: "Handler<OrderCreated>"}))
	assert.False(t, Evaluate(class, &rules.ImplementsInterface{Name: "Hand"}))
	assert.False(t, Evaluate(method, &rules.ImplementsInterface{Name: "OnModuleInit"}))

	noBase := &fake.Class{ClassName: "Plain"}
	assert.False(t, Evaluate(noBase, &rules.ExtendsClass{Name: ""}))
}

func TestEvaluate_GenericHeritage(t *testing.T) {
	t.Parallel()

	class := &fake.Class{
		ClassName:      "OrderCreated",
		Extends:        "DomainEvent<Order>",
		ImplementsList: []string{"EventHandler<OrderPlaced, Context>"},
	}

	tests := []struct {
		name string
		pred rules.Predicate
		want bool
	}{
		{"extends bare name", &rules.ExtendsClass{Name: "DomainEvent"}, true},
		{"extends full text", &rules.ExtendsClass{Name: "DomainEvent<Order>"}, true},
		{"extends other argument", &rules.ExtendsClass{Name: "DomainEvent<Invoice>"}, false},
		{"extends prefix", &rules.ExtendsClass{Name: "Domain"}, false},
		{"implements bare name", &rules.ImplementsInterface{Name: "EventHandler"}, true},
		{"implements full text", &rules.ImplementsInterface{Name: "EventHandler<OrderPlaced, Context>"}, true},
		{"implements other interface", &rules.ImplementsInterface{Name: "Handler"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Evaluate(class, tt.pred))
		})
	}
}

func TestEvaluate_Names(t *testing.T) {
	t.Parallel()
	_, class, method, fn := fixture()

	assert.True(t, Evaluate(class, &rules.NameEndsWith{Suffix: "Controller"}))
	assert.False(t, Evaluate(method, &rules.NameEndsWith{Suffix: "Controller"}))
	assert.True(t, Evaluate(fn, &rules.NameEndsWith{Suffix: "Order"}))

	re, err := rules.NewNameMatches("^get[A-Z]")
	require.NoError(t, err)
	assert.True(t, Evaluate(method, re))
	assert.False(t, Evaluate(class, re))

	// Built without the constructor: compiled lazily.
	assert.True(t, Evaluate(fn, &rules.NameMatches{Pattern: "Order$"}))
	// Invalid pattern evaluates false instead of failing.
	assert.False(t, Evaluate(fn, &rules.NameMatches{Pattern: "("}))
}

func TestEvaluate_MissingCapabilityIsFalse(t *testing.T) {
	t.Parallel()

	bare := &fake.Bare{}
	anonymous := &fake.Class{}
	preds := []rules.Predicate{
		&rules.NameEndsWith{Suffix: ""},
		&rules.NameMatches{Pattern: ".*"},
		&rules.ExtendsClass{Name: "X"},
		&rules.ImplementsInterface{Name: "X"},
		&rules.HasDecorator{Names: []string{"X"}},
		&rules.HasJSDoc{Tag: "x"},
		&rules.InClassWith{Predicate: &rules.And{}},
	}

	for _, p := range preds {
		assert.NotPanics(t, func() {
			assert.False(t, Evaluate(bare, p))
		})
	}

	assert.False(t, Evaluate(anonymous, &rules.NameEndsWith{Suffix: ""}))
	assert.False(t, Evaluate(anonymous, &rules.NameMatches{Pattern: ".*"}))
	assert.False(t, Evaluate(nil, &rules.And{}))
	assert.False(t, Evaluate(bare, nil))
}

func TestEvaluate_InClassWith(t *testing.T) {
	t.Parallel()
	_, class, method, fn := fixture()

	assert.True(t, Evaluate(method, &rules.InClassWith{Predicate: &rules.HasDecorator{Names: []string{"Controller"}}}))
	assert.False(t, Evaluate(method, &rules.InClassWith{Predicate: &rules.NameEndsWith{Suffix: "Service"}}))

	// Classes and top-level functions never match.
	assert.False(t, Evaluate(class, &rules.InClassWith{Predicate: &rules.And{}}))
	assert.False(t, Evaluate(fn, &rules.InClassWith{Predicate: &rules.And{}}))

	// Methods whose parent is not a class never match.
	orphan := &fake.Method{MethodName: "x", Base: fake.Base{ParentNode: &fake.Bare{}}}
	assert.False(t, Evaluate(orphan, &rules.InClassWith{Predicate: &rules.And{}}))
}

func TestEvaluate_Combinators(t *testing.T) {
	t.Parallel()
	_, class, method, fn := fixture()

	yes := &rules.NameEndsWith{Suffix: "Controller"}
	no := &rules.NameEndsWith{Suffix: "Service"}

	for _, node := range []syntax.Node{class, method, fn, &fake.Bare{}} {
		assert.True(t, Evaluate(node, &rules.And{}), "empty and is vacuously true")
		assert.False(t, Evaluate(node, &rules.Or{}), "empty or is vacuously false")
	}

	preds := []rules.Predicate{yes, no}
	for _, p := range preds {
		for _, q := range preds {
			want := Evaluate(class, p) && Evaluate(class, q)
			assert.Equal(t, want, Evaluate(class, &rules.And{Predicates: []rules.Predicate{p, q}}))
			want = Evaluate(class, p) || Evaluate(class, q)
			assert.Equal(t, want, Evaluate(class, &rules.Or{Predicates: []rules.Predicate{p, q}}))
		}
	}

	nested := &rules.And{Predicates: []rules.Predicate{
		&rules.Or{Predicates: []rules.Predicate{no, &rules.HasDecorator{Names: []string{"Get"}}}},
		&rules.InClassWith{Predicate: yes},
	}}
	assert.True(t, Evaluate(method, nested))
	assert.False(t, Evaluate(class, nested))
}
