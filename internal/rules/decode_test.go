package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Decode:
// - full documents with modules list and the single-module shorthand
// - every predicate tag, including scalar shorthands and nested and/or/inClassWith
// - every extraction rule tag with transforms and literal value typing
// - custom types with description
// - errors carry ErrInvalidConfig and a line number

const ordersConfig = `
$schema: ./schema.json
modules:
  - name: orders
    path: src/orders
    api:
      find:
        and:
          - hasDecorator: {name: [Get, Post], from: "@nestjs/common"}
          - inClassWith: {hasDecorator: Controller}
      extract:
        route: {fromDecoratorArg: {decoratorName: Get, argIndex: 0}}
        controller:
          fromClassName:
            transform: {stripSuffix: Controller, pascalToKebab: true}
        signature: {fromMethodSignature: {}}
    useCase:
      find: {nameEndsWith: UseCase}
      extract:
        name: {fromClassName: {transform: {stripSuffix: UseCase}}}
        deps: {fromConstructorParams: {}}
        input: {fromParameterType: {position: 0}}
    domainOp:
      find:
        or:
          predicates:
            - hasJSDoc: {tag: domainOp}
            - nameMatches: "^apply[A-Z]"
    event:
      find: {extendsClass: DomainEvent}
      extract:
        kind: {literal: event}
        version: {literal: 2}
        durable: {literal: true}
        topic: {fromProperty: {path: "@Topic.0.name"}}
    eventHandler:
      find: {implementsInterface: {name: "EventHandler<OrderPlaced>"}}
      extract:
        handles: {fromGenericArg: {position: 0, heritage: EventHandler}}
    ui:
      find: {nameEndsWith: {suffix: Page}}
      extract:
        file: {fromFilePath: {transform: {stripPrefix: src/}}}
        method: {fromMethodName: {transform: {toUpperCase: true}}}
        verb: {fromDecoratorName: {oneOf: [Get, Post]}}
    customTypes:
      job:
        description: Scheduled jobs
        find: {hasDecorator: Cron}
        extract:
          schedule: {fromDecoratorArg: {decorator: Cron}}
`

func TestDecode_FullConfig(t *testing.T) {
	t.Parallel()

	cfg, err := Decode([]byte(ordersConfig))
	require.NoError(t, err)
	require.Len(t, cfg.Modules, 1)

	m := cfg.Modules[0]
	assert.Equal(t, "orders", m.Name)
	assert.Equal(t, "src/orders", m.Path)
	assert.Empty(t, m.Extends)

	// api
	and, ok := m.API.Predicate.(*And)
	require.True(t, ok)
	require.Len(t, and.Predicates, 2)
	assert.Equal(t, &HasDecorator{Names: []string{"Get", "Post"}, From: "@nestjs/common"}, and.Predicates[0])
	assert.Equal(t, &InClassWith{Predicate: &HasDecorator{Names: []string{"Controller"}}}, and.Predicates[1])
	assert.Equal(t, &FromDecoratorArg{DecoratorName: "Get", ArgIndex: 0}, m.API.Fields["route"])
	suffix := "Controller"
	assert.Equal(t, &FromClassName{Transform: &Transform{StripSuffix: &suffix, PascalToKebab: true}}, m.API.Fields["controller"])
	assert.Equal(t, &FromMethodSignature{}, m.API.Fields["signature"])

	// useCase
	assert.Equal(t, &NameEndsWith{Suffix: "UseCase"}, m.UseCase.Predicate)
	assert.Equal(t, &FromConstructorParams{}, m.UseCase.Fields["deps"])
	assert.Equal(t, &FromParameterType{Position: 0}, m.UseCase.Fields["input"])

	// domainOp
	or, ok := m.DomainOp.Predicate.(*Or)
	require.True(t, ok)
	require.Len(t, or.Predicates, 2)
	assert.Equal(t, &HasJSDoc{Tag: "domainOp"}, or.Predicates[0])
	nm, ok := or.Predicates[1].(*NameMatches)
	require.True(t, ok)
	assert.Equal(t, "^apply[A-Z]", nm.Pattern)
	re, err := nm.Regexp()
	require.NoError(t, err)
	assert.True(t, re.MatchString("applyDiscount"))
	assert.Empty(t, m.DomainOp.Fields)

	// event
	assert.Equal(t, &ExtendsClass{Name: "DomainEvent"}, m.Event.Predicate)
	assert.Equal(t, &Literal{Value: "event"}, m.Event.Fields["kind"])
	assert.Equal(t, &Literal{Value: float64(2)}, m.Event.Fields["version"])
	assert.Equal(t, &Literal{Value: true}, m.Event.Fields["durable"])
	assert.Equal(t, &FromProperty{Path: "@Topic.0.name"}, m.Event.Fields["topic"])

	// eventHandler
	assert.Equal(t, &ImplementsInterface{Name: "EventHandler<OrderPlaced>"}, m.EventHandler.Predicate)
	assert.Equal(t, &FromGenericArg{Position: 0, Heritage: "EventHandler"}, m.EventHandler.Fields["handles"])

	// ui
	assert.Equal(t, &NameEndsWith{Suffix: "Page"}, m.UI.Predicate)
	prefix := "src/"
	assert.Equal(t, &FromFilePath{Transform: &Transform{StripPrefix: &prefix}}, m.UI.Fields["file"])
	assert.Equal(t, &FromMethodName{Transform: &Transform{ToUpperCase: true}}, m.UI.Fields["method"])
	assert.Equal(t, &FromDecoratorName{OneOf: []string{"Get", "Post"}}, m.UI.Fields["verb"])

	// customTypes
	require.Contains(t, m.CustomTypes, "job")
	job := m.CustomTypes["job"]
	assert.Equal(t, "Scheduled jobs", job.Description)
	require.NotNil(t, job.Rule)
	assert.Equal(t, &HasDecorator{Names: []string{"Cron"}}, job.Rule.Predicate)
	assert.Equal(t, &FromDecoratorArg{DecoratorName: "Cron"}, job.Rule.Fields["schedule"])
}

func TestDecode_SingleModuleDocument(t *testing.T) {
	t.Parallel()

	cfg, err := Decode([]byte(`
name: base
path: src
extends: ../shared/base.yml
api:
  predicate: {hasDecorator: Controller}
  fields:
    name: {fromClassName: {}}
`))
	require.NoError(t, err)
	require.Len(t, cfg.Modules, 1)
	m := cfg.Modules[0]
	assert.Equal(t, "../shared/base.yml", m.Extends)
	require.NotNil(t, m.API)
	assert.Equal(t, &FromClassName{}, m.API.Fields["name"])
	assert.Nil(t, m.UseCase)
}

func TestDecode_JSON(t *testing.T) {
	t.Parallel()

	cfg, err := Decode([]byte(`{"modules":[{"name":"a","path":"src/a","extends":"base.json","api":{"find":{"nameEndsWith":"Controller"},"extract":{"n":{"literal":1.5}}}}]}`))
	require.NoError(t, err)
	require.Len(t, cfg.Modules, 1)
	assert.Equal(t, &Literal{Value: 1.5}, cfg.Modules[0].API.Fields["n"])
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{"not a mapping", "- a\n- b\n", "document must be a mapping"},
		{"empty", "", "empty document"},
		{"unknown top key", "modules: []\nextra: 1\n", `unknown key "extra"`},
		{"modules not a list", "modules: {}\n", "modules must be a list"},
		{"missing name", "modules:\n  - path: src\n", "module name is required"},
		{"missing path", "modules:\n  - name: a\n", `module "a": path is required`},
		{"unknown module key", "name: a\npath: b\nservices: {}\n", `unknown module key "services"`},
		{"rule without predicate", "name: a\npath: b\napi: {extract: {}}\n", "requires a predicate"},
		{"unknown predicate", "name: a\npath: b\napi: {find: {isCool: true}}\n", `unknown predicate "isCool"`},
		{"two-key predicate", "name: a\npath: b\napi: {find: {nameEndsWith: X, hasJSDoc: y}}\n", "exactly one key"},
		{"bad regex", "name: a\npath: b\napi: {find: {nameMatches: \"([\"}}\n", "invalid pattern"},
		{"unknown rule", "name: a\npath: b\napi: {find: {nameEndsWith: X}, extract: {f: {fromMagic: {}}}}\n", `unknown extraction rule "fromMagic"`},
		{"position required", "name: a\npath: b\napi: {find: {nameEndsWith: X}, extract: {f: {fromGenericArg: {}}}}\n", "requires position"},
		{"negative position", "name: a\npath: b\napi: {find: {nameEndsWith: X}, extract: {f: {fromParameterType: {position: -1}}}}\n", "must not be negative"},
		{"literal object", "name: a\npath: b\napi: {find: {nameEndsWith: X}, extract: {f: {literal: {a: 1}}}}\n", "literal value must be"},
		{"fromProperty without path", "name: a\npath: b\napi: {find: {nameEndsWith: X}, extract: {f: {fromProperty: {}}}}\n", "requires path"},
		{"decorator arg without name", "name: a\npath: b\napi: {find: {nameEndsWith: X}, extract: {f: {fromDecoratorArg: {argIndex: 1}}}}\n", "requires decoratorName"},
		{"misspelled rule key", "name: a\npath: b\napi: {find: {nameEndsWith: X}, extract: {f: {fromDecoratorArg: {decoratorName: Get, argIdx: 2}}}}\n", `unknown fromDecoratorArg key "argIdx"`},
		{"key of another rule", "name: a\npath: b\napi: {find: {nameEndsWith: X}, extract: {f: {fromClassName: {position: 0}}}}\n", `unknown fromClassName key "position"`},
		{"misspelled transform key", "name: a\npath: b\napi: {find: {nameEndsWith: X}, extract: {f: {fromClassName: {transform: {stripSufix: Controller}}}}}\n", `unknown transform key "stripSufix"`},
		{"transform flag not bool", "name: a\npath: b\napi: {find: {nameEndsWith: X}, extract: {f: {fromMethodName: {transform: {toUpperCase: yes please}}}}}\n", "toUpperCase must be a boolean"},
		{"argIndex not int", "name: a\npath: b\napi: {find: {nameEndsWith: X}, extract: {f: {fromDecoratorArg: {decoratorName: Get, argIndex: first}}}}\n", "argIndex must be an integer"},
		{"hasDecorator without name", "name: a\npath: b\napi: {find: {hasDecorator: {from: x}}}\n", "requires name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestDecode_ErrorLine(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("name: a\npath: b\napi:\n  find:\n    nameEndsWith: X\n  extract:\n    f: {nope: {}}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 7")
	assert.Contains(t, err.Error(), `field "f"`)
}

func TestDecodeFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "archextract.yml")
	require.NoError(t, os.WriteFile(path, []byte(ordersConfig), 0644))

	cfg, err := DecodeFile(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Modules, 1)

	_, err = DecodeFile(filepath.Join(dir, "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
