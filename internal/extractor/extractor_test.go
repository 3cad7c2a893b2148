package extractor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/archextract/internal/component"
	"github.com/mvp-joe/archextract/internal/extract"
	"github.com/mvp-joe/archextract/internal/resolve"
	"github.com/mvp-joe/archextract/internal/rules"
)

// Test Plan for Extractor:
// - a full session over testdata/shop yields every component with its fields
// - output order and IDs are deterministic regardless of worker count
// - progress callbacks see every module and file
// - a non-literal decorator argument aborts the session with an ExtractionError
// - a cancelled context aborts the session

var defaultInclude = []string{"**/*.ts", "**/*.tsx"}

func loadShop(t *testing.T) (string, *rules.ResolvedExtractionConfig) {
	t.Helper()
	root := filepath.Join("testdata", "shop")
	cfg, err := rules.DecodeFile(filepath.Join(root, "archextract.yml"))
	require.NoError(t, err)
	resolved, err := resolve.Resolve(cfg, resolve.NewFileLoader(root))
	require.NoError(t, err)
	return root, resolved
}

type recordingProgress struct {
	mu      sync.Mutex
	modules map[string]int
	files   []string
	stats   *Stats
}

func (r *recordingProgress) OnModuleStart(module string, totalFiles int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[module] = totalFiles
}

func (r *recordingProgress) OnFileProcessed(module, file string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, module+":"+file)
}

func (r *recordingProgress) OnComplete(stats *Stats) {
	r.stats = stats
}

func TestExtractor_Shop(t *testing.T) {
	t.Parallel()

	root, resolved := loadShop(t)
	progress := &recordingProgress{modules: map[string]int{}}
	ex, err := New(Options{RootDir: root, Include: defaultInclude, Workers: 2, Progress: progress})
	require.NoError(t, err)

	result, err := ex.Run(context.Background(), resolved)
	require.NoError(t, err)

	ids := make([]string, 0, len(result.Components))
	for _, c := range result.Components {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{
		"billing:ui:src/billing/InvoicePage.tsx:1:InvoicePage",
		"billing:eventHandler:src/billing/invoice.handler.ts:3:InvoiceHandler",
		"billing:job:src/billing/invoice.handler.ts:6:sweep",
		"billing:domainOp:src/billing/invoice.handler.ts:11:applyDiscount",
		"orders:event:src/orders/order-placed.event.ts:1:OrderPlaced",
		"orders:event:src/orders/order-shipped.event.ts:3:OrderShipped",
		"orders:api:src/orders/orders.controller.ts:7:getOrder",
		"orders:api:src/orders/orders.controller.ts:12:create",
		"orders:useCase:src/orders/place-order.use-case.ts:1:PlaceOrderUseCase",
	}, ids)

	byID := map[string]component.Component{}
	for _, c := range result.Components {
		byID[c.ID] = c
	}

	getOrder := byID["orders:api:src/orders/orders.controller.ts:7:getOrder"]
	assert.Equal(t, rules.TypeAPI, getOrder.Type)
	assert.Equal(t, extract.String("orders"), getOrder.Fields["controller"])
	assert.Equal(t, extract.String("GET"), getOrder.Fields["verb"])
	assert.Equal(t, extract.MethodSignature{
		Parameters: []extract.ParameterInfo{{Name: "id", Type: "string"}},
		ReturnType: "Promise<Order>",
	}, getOrder.Fields["signature"])

	create := byID["orders:api:src/orders/orders.controller.ts:12:create"]
	assert.Equal(t, extract.String("POST"), create.Fields["verb"])
	assert.Equal(t, extract.MethodSignature{
		Parameters: []extract.ParameterInfo{{Name: "body", Type: "CreateOrderDto"}},
		ReturnType: extract.UnknownType,
	}, create.Fields["signature"])

	useCase := byID["orders:useCase:src/orders/place-order.use-case.ts:1:PlaceOrderUseCase"]
	assert.Equal(t, extract.String("place-order"), useCase.Fields["name"])
	assert.Equal(t, extract.ParameterList{
		{Name: "repo", Type: "OrderRepository"},
		{Name: "bus", Type: extract.UnknownType},
	}, useCase.Fields["deps"])

	event := byID["orders:event:src/orders/order-placed.event.ts:1:OrderPlaced"]
	assert.Equal(t, map[string]extract.Value{
		"topic":   extract.String("orders.placed"),
		"durable": extract.Bool(true),
	}, event.Fields)

	shipped := byID["orders:event:src/orders/order-shipped.event.ts:3:OrderShipped"]
	assert.Equal(t, extract.String("orders.shipped"), shipped.Fields["topic"])

	handler := byID["billing:eventHandler:src/billing/invoice.handler.ts:3:InvoiceHandler"]
	assert.Equal(t, extract.String("OrderPlaced"), handler.Fields["handles"])

	job := byID["billing:job:src/billing/invoice.handler.ts:6:sweep"]
	assert.Equal(t, rules.TypeCustom, job.Type)
	assert.Equal(t, "job", job.CustomType)
	assert.Equal(t, extract.String("0 0 * * *"), job.Fields["schedule"])

	op := byID["billing:domainOp:src/billing/invoice.handler.ts:11:applyDiscount"]
	assert.Equal(t, extract.String("applyDiscount"), op.Fields["name"])
	assert.Equal(t, extract.String("number"), op.Fields["input"])

	page := byID["billing:ui:src/billing/InvoicePage.tsx:1:InvoicePage"]
	assert.Equal(t, extract.String("billing/InvoicePage.tsx"), page.Fields["file"])

	assert.Equal(t, map[string]int{"orders": 4, "billing": 2}, progress.modules)
	assert.Len(t, progress.files, 6)
	require.NotNil(t, progress.stats)
	assert.Equal(t, 2, progress.stats.Modules)
	assert.Equal(t, 6, progress.stats.Files)
	assert.Equal(t, 9, progress.stats.Components)
	assert.Equal(t, *progress.stats, result.Stats)
}

func TestExtractor_DeterministicAcrossWorkers(t *testing.T) {
	t.Parallel()

	root, resolved := loadShop(t)

	var runs [][]component.Component
	for _, workers := range []int{1, 4} {
		ex, err := New(Options{RootDir: root, Include: defaultInclude, Workers: workers})
		require.NoError(t, err)
		result, err := ex.Run(context.Background(), resolved)
		require.NoError(t, err)
		runs = append(runs, result.Components)
	}
	assert.Equal(t, runs[0], runs[1])
}

func TestExtractor_ExtractionErrorAborts(t *testing.T) {
	t.Parallel()

	cfg, err := rules.Decode([]byte(`
name: broken
path: src
api:
  find: {hasDecorator: Get}
  extract:
    route: {fromDecoratorArg: {decoratorName: Get}}
useCase: {find: {nameEndsWith: UseCase}}
domainOp: {find: {hasJSDoc: domainOp}}
event: {find: {extendsClass: DomainEvent}}
eventHandler: {find: {implementsInterface: Handler}}
ui: {find: {nameEndsWith: Page}}
`))
	require.NoError(t, err)
	resolved, err := resolve.Resolve(cfg, nil)
	require.NoError(t, err)

	ex, err := New(Options{RootDir: filepath.Join("testdata", "broken"), Include: defaultInclude})
	require.NoError(t, err)

	_, err = ex.Run(context.Background(), resolved)
	require.Error(t, err)

	var extErr *extract.ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, "src/bad.controller.ts", extErr.File)
	assert.Equal(t, 5, extErr.Line)
	assert.Contains(t, err.Error(), `module "broken", api`)
	assert.Contains(t, err.Error(), "not a literal: path")
}

func TestExtractor_CancelledContext(t *testing.T) {
	t.Parallel()

	root, resolved := loadShop(t)
	ex, err := New(Options{RootDir: root, Include: defaultInclude})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ex.Run(ctx, resolved)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := New(Options{RootDir: ".", Include: []string{"src/[.ts"}})
	assert.Error(t, err)
}
