package resolver

import (
	"strconv"

	"github.com/moffa90/go-modbin/describe"
)

// outdated is an inventory module that fails a requirement.
type outdated struct {
	module   describe.Module
	required describe.Dependency
}

// Solve walks inventory for modules that fail req: same function and index
// with a lower version. Each failing module's own dependencies are walked
// in turn, and what they turn up is placed ahead of what was found before,
// so dependencies precede their dependents. Entries repeating an earlier
// (function, index, version) are dropped.
//
// Example:
//
//	inv := []describe.Module{
//		{Function: "s", Index: "1", Version: 2},
//		{Function: "s", Index: "2", Version: 2, Dependencies: []describe.Dependency{{Function: "s", Index: "1", Version: 2}}},
//	}
//	resolver.Solve(inv, describe.Dependency{Function: "s", Index: "2", Version: 3})
//	// [{s 2 v2}]; its dependency s/1@2 is already met
func Solve(inventory []describe.Module, req describe.Dependency) []describe.Module {
	found := solve(inventory, req)
	out := make([]describe.Module, 0, len(found))
	for _, o := range found {
		out = append(out, o.module)
	}
	return out
}

func solve(inventory []describe.Module, req describe.Dependency) []outdated {
	return dedupe(walk(inventory, req, make(map[string]bool)))
}

// walk is the depth-first search behind Solve. inPath holds the slots on the
// current path so a cyclic inventory terminates.
func walk(inventory []describe.Module, req describe.Dependency, inPath map[string]bool) []outdated {
	key := req.Key()
	if inPath[key] {
		return nil
	}
	inPath[key] = true
	defer delete(inPath, key)

	var out []outdated
	for _, m := range inventory {
		if m.Function != req.Function || m.Index != req.Index || m.Version >= req.Version {
			continue
		}
		out = append(out, outdated{module: m, required: req})
		for _, dep := range m.Dependencies {
			if sub := walk(inventory, dep, inPath); len(sub) > 0 {
				out = append(sub, out...)
			}
		}
	}
	return out
}

func dedupe(found []outdated) []outdated {
	seen := make(map[string]bool, len(found))
	out := found[:0]
	for _, o := range found {
		k := o.module.Requirement().String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, o)
	}
	return out
}

// RetrieveModules returns, for each requirement, the first candidate in store
// with the same function and index and a version at least as high.
// Requirements without a match are skipped.
func RetrieveModules(required []describe.Dependency, store []*Candidate) []*Candidate {
	var out []*Candidate
	for _, req := range required {
		if c, ok := retrieve(req, store); ok {
			out = append(out, c)
		}
	}
	return out
}

func retrieve(req describe.Dependency, store []*Candidate) (*Candidate, bool) {
	for _, c := range store {
		if c.Info == nil {
			continue
		}
		p := c.Info.Prefix
		if p.Function.Char() == req.Function &&
			strconv.Itoa(int(p.Index)) == string(req.Index) &&
			int(p.ModuleVersion) >= req.Version {
			return c, true
		}
	}
	return nil, false
}
