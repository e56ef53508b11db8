// Package resolver works out which modules a device needs before a binary
// can run on it.
//
// The device inventory comes from its describe message and the binary's
// requirements from its prefix dependency slots and DEPENDENCY extensions.
// Solve finds inventory modules that fail a requirement, RetrieveModules
// picks replacements from a store of parsed modules, and a Resolver repeats
// both through each replacement's own requirements:
//
//	store, err := resolver.LoadCandidates(afero.NewOsFs(), "./firmware")
//	r := resolver.New(store, resolver.WithLogger(logger))
//	res, err := r.ResolveDependencies(ctx, desc, info)
//	for _, c := range res.Updates {
//	    fmt.Println("flash", c.Name)
//	}
package resolver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/moffa90/go-modbin/describe"
	"github.com/moffa90/go-modbin/module"
)

var (
	// ErrNoDescribe indicates ResolveDependencies was called without an inventory
	ErrNoDescribe = errors.New("no describe message")

	// ErrNoBinary indicates ResolveDependencies was called without a binary
	ErrNoBinary = errors.New("no binary module")

	// ErrTooDeep indicates the recursion limit was reached
	ErrTooDeep = errors.New("dependency chain too deep")
)

// Candidate is a module available for delivery.
type Candidate struct {
	Name string       `json:"name"`
	Info *module.Info `json:"info"`
	Data []byte       `json:"-"`
}

// NewCandidate parses data into a Candidate.
func NewCandidate(name string, data []byte, opts ...module.Option) (*Candidate, error) {
	info, err := module.ParseBuffer(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Candidate{Name: name, Info: info, Data: data}, nil
}

// Requirement returns the slot and version the candidate provides.
func (c *Candidate) Requirement() describe.Dependency {
	p := c.Info.Prefix
	return describe.FromModuleDependency(module.Dependency{
		Function: p.Function,
		Index:    p.Index,
		Version:  p.ModuleVersion,
	})
}

// LoadCandidates parses every .bin file in dir. Files that fail to parse are
// left out and reported together in the returned error, alongside the
// candidates that did parse.
func LoadCandidates(fs afero.Fs, dir string, opts ...module.Option) ([]*Candidate, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read module store: %w", err)
	}

	var out []*Candidate
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".bin") {
			continue
		}
		p := filepath.Join(dir, e.Name())
		data, err := afero.ReadFile(fs, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c, err := NewCandidate(e.Name(), data, opts...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	return out, errors.Join(errs...)
}

// Resolution is the outcome of ResolveDependencies.
type Resolution struct {
	// Updates are the modules to deliver, dependencies first
	Updates []*Candidate `json:"updates"`

	// Missing are requirements no store module satisfies
	Missing []describe.Dependency `json:"missing"`
}

// Resolver resolves binary requirements against a device inventory using a
// fixed store of candidates. A Resolver is safe for concurrent use.
type Resolver struct {
	store  []*Candidate
	config Config
}

// New creates a Resolver over store. Store order is the retrieval preference.
func New(store []*Candidate, opts ...Option) *Resolver {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Resolver{store: store, config: cfg}
}

// ResolveDependencies returns the modules to deliver before binary can run
// on the device described by desc.
//
// The inventory is repaired with describe.RepairDescribeErrors on a copy.
// Each of the binary's requirements is solved against it; every failing
// module is replaced from the store and the replacement's own requirements
// are resolved the same way. Sibling requirements are resolved concurrently
// and reassembled in order. A branch that fails is logged and contributes
// nothing; only missing input and context cancellation are returned as errors.
func (r *Resolver) ResolveDependencies(ctx context.Context, desc *describe.Describe, binary *module.Info) (*Resolution, error) {
	if desc == nil {
		return nil, ErrNoDescribe
	}
	if binary == nil || binary.Prefix == nil || binary.Suffix == nil {
		return nil, ErrNoBinary
	}

	inv := desc.Clone()
	describe.RepairDescribeErrors(inv)

	reqs := requirements(binary)
	r.logInfo("Resolving dependencies", "requirements", len(reqs), "inventory", len(inv.Modules))

	b, err := r.resolveAll(ctx, inv.Modules, reqs, nil)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Updates: b.updates, Missing: b.missing}
	if res.Updates == nil {
		res.Updates = []*Candidate{}
	}
	if res.Missing == nil {
		res.Missing = []describe.Dependency{}
	}
	r.logInfo("Resolution complete", "updates", len(res.Updates), "missing", len(res.Missing))
	return res, nil
}

type branch struct {
	updates []*Candidate
	missing []describe.Dependency
}

// resolveAll resolves sibling requirements concurrently. path holds the
// candidates on the way here, by requirement string.
func (r *Resolver) resolveAll(ctx context.Context, inventory []describe.Module, reqs []describe.Dependency, path []string) (branch, error) {
	results := make([]branch, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := r.resolveRequirement(gctx, inventory, req, path)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.logError("Dependency resolution failed", "requirement", req.String(), "error", err)
				return nil
			}
			results[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return branch{}, err
	}

	var out branch
	seen := make(map[*Candidate]bool)
	seenMissing := make(map[string]bool)
	for _, b := range results {
		for _, c := range b.updates {
			if !seen[c] {
				seen[c] = true
				out.updates = append(out.updates, c)
			}
		}
		for _, m := range b.missing {
			if k := m.String(); !seenMissing[k] {
				seenMissing[k] = true
				out.missing = append(out.missing, m)
			}
		}
	}
	return out, nil
}

func (r *Resolver) resolveRequirement(ctx context.Context, inventory []describe.Module, req describe.Dependency, path []string) (branch, error) {
	found := solve(inventory, req)
	if len(found) == 0 {
		r.logDebug("No updates needed", "requirement", req.String())
		return branch{}, nil
	}
	if len(path) >= r.config.MaxDepth {
		return branch{}, fmt.Errorf("%w: %s", ErrTooDeep, strings.Join(path, " -> "))
	}

	var b branch
	for _, o := range found {
		c, ok := retrieve(o.required, r.store)
		if !ok {
			r.logInfo("No updates available", "requirement", o.required.String(), "installed", o.module.Version)
			b.missing = append(b.missing, o.required)
			continue
		}

		key := c.Requirement().String()
		if slices.Contains(path, key) {
			continue
		}
		r.logDebug("Update found", "requirement", o.required.String(), "module", c.Name, "version", c.Info.Prefix.ModuleVersion)

		sub, err := r.resolveAll(ctx, inventory, requirements(c.Info), append(slices.Clip(path), key))
		if err != nil {
			return branch{}, err
		}
		b.updates = append(b.updates, sub.updates...)
		b.updates = append(b.updates, c)
		b.missing = append(b.missing, sub.missing...)
	}
	return b, nil
}

// requirements converts the binary dependencies of info to describe form.
func requirements(info *module.Info) []describe.Dependency {
	deps := info.Requirements()
	out := make([]describe.Dependency, 0, len(deps))
	for _, d := range deps {
		out = append(out, describe.FromModuleDependency(d))
	}
	return out
}

// logDebug logs a debug message if a logger is configured.
func (r *Resolver) logDebug(msg string, keyvals ...interface{}) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, keyvals...)
	}
}

// logInfo logs an info message if a logger is configured.
func (r *Resolver) logInfo(msg string, keyvals ...interface{}) {
	if r.config.Logger != nil {
		r.config.Logger.Info(msg, keyvals...)
	}
}

// logError logs an error message if a logger is configured.
func (r *Resolver) logError(msg string, keyvals ...interface{}) {
	if r.config.Logger != nil {
		r.config.Logger.Error(msg, keyvals...)
	}
}
