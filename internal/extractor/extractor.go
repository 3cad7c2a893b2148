// Package extractor drives an extraction session: for every resolved module
// it discovers the module's files, parses them, matches every candidate
// declaration against the module's rules and extracts component fields.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/archextract/internal/component"
	"github.com/mvp-joe/archextract/internal/discovery"
	"github.com/mvp-joe/archextract/internal/extract"
	"github.com/mvp-joe/archextract/internal/predicate"
	"github.com/mvp-joe/archextract/internal/rules"
	"github.com/mvp-joe/archextract/internal/syntax"
	"github.com/mvp-joe/archextract/internal/syntax/typescript"
)

// Options configures an Extractor.
type Options struct {
	RootDir  string
	Include  []string
	Ignore   []string
	Workers  int // defaults to runtime.NumCPU()
	Progress ProgressReporter
}

// Result is the outcome of a session.
type Result struct {
	Components []component.Component
	Stats      Stats
}

// Extractor runs extraction sessions over one source tree.
type Extractor struct {
	rootDir   string
	workers   int
	progress  ProgressReporter
	discovery *discovery.Discovery
}

// New creates an Extractor.
func New(opts Options) (*Extractor, error) {
	d, err := discovery.New(opts.RootDir, opts.Include, opts.Ignore)
	if err != nil {
		return nil, err
	}
	e := &Extractor{
		rootDir:   opts.RootDir,
		workers:   opts.Workers,
		progress:  opts.Progress,
		discovery: d,
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	if e.progress == nil {
		e.progress = &NoOpProgressReporter{}
	}
	return e, nil
}

// Discovery returns the file matcher used by the extractor.
func (e *Extractor) Discovery() *discovery.Discovery { return e.discovery }

// Run extracts the components of every module of resolved. The first
// extraction error aborts the session. Components are returned sorted by
// module, file, line and kind.
func (e *Extractor) Run(ctx context.Context, resolved *rules.ResolvedExtractionConfig) (*Result, error) {
	start := time.Now()
	result := &Result{Components: []component.Component{}}

	for i := range resolved.Modules {
		m := &resolved.Modules[i]

		files, err := e.discovery.ModuleFiles(m.Path)
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", m.Name, err)
		}
		e.progress.OnModuleStart(m.Name, len(files))

		comps, err := e.runModule(ctx, m, files)
		if err != nil {
			return nil, err
		}
		result.Components = append(result.Components, comps...)
		result.Stats.Files += len(files)
		result.Stats.Modules++
	}

	component.Sort(result.Components)
	component.AssignIDs(result.Components)

	result.Stats.Components = len(result.Components)
	result.Stats.Duration = time.Since(start)
	e.progress.OnComplete(&result.Stats)
	return result, nil
}

func (e *Extractor) runModule(ctx context.Context, m *rules.Module, files []string) ([]component.Component, error) {
	perFile := make([][]component.Component, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			comps, err := e.extractFile(m, file)
			if err != nil {
				return err
			}
			perFile[i] = comps
			e.progress.OnFileProcessed(m.Name, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []component.Component
	for _, comps := range perFile {
		out = append(out, comps...)
	}
	return out, nil
}

func (e *Extractor) extractFile(m *rules.Module, relPath string) ([]component.Component, error) {
	if !typescript.Supported(relPath) {
		return nil, nil
	}
	source, err := os.ReadFile(filepath.Join(e.rootDir, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", relPath, err)
	}
	file, err := typescript.Parse(relPath, source)
	if err != nil {
		return nil, err
	}

	var out []component.Component
	for _, node := range file.Candidates() {
		comps, err := ExtractNode(m, node)
		if err != nil {
			return nil, err
		}
		out = append(out, comps...)
	}
	return out, nil
}

// ExtractNode evaluates every rule of m against node: the built-in types in
// their fixed order, then custom types by name. A node may match several
// types. IDs are left empty.
func ExtractNode(m *rules.Module, node syntax.Node) ([]component.Component, error) {
	var out []component.Component

	match := func(t rules.ComponentType, custom string, cr *rules.ComponentRule) error {
		if cr == nil || !predicate.Evaluate(node, cr.Predicate) {
			return nil
		}
		fields, err := extract.ExtractFields(node, cr)
		if err != nil {
			kind := string(t)
			if custom != "" {
				kind = custom
			}
			return fmt.Errorf("module %q, %s: %w", m.Name, kind, err)
		}
		c := component.Component{
			Type:       t,
			CustomType: custom,
			Module:     m.Name,
			Line:       node.StartLine(),
			Fields:     fields,
		}
		if f := node.SourceFile(); f != nil {
			c.File = f.Path()
		}
		if named, ok := node.(syntax.Nameable); ok {
			c.Name, _ = named.Name()
		}
		out = append(out, c)
		return nil
	}

	for _, t := range rules.ComponentTypes() {
		if err := match(t, "", m.Rule(t)); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(m.CustomTypes))
	for name := range m.CustomTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := match(rules.TypeCustom, name, m.CustomTypes[name].Rule); err != nil {
			return nil, err
		}
	}
	return out, nil
}
