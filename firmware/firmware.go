// Package firmware models the modules installed on a device as reported by
// its describe message: what each module is, whether the device considers
// it valid, and whether its dependencies are met by the rest of the
// inventory.
//
// Example:
//
//	desc, _ := describe.Parse(payload)
//	mods, err := firmware.FromDescribe(desc)
//	for _, m := range mods {
//	    if !m.AreDependenciesMet(mods) {
//	        fmt.Println(m, "needs", m.UnmetDependencies())
//	    }
//	}
package firmware

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/moffa90/go-modbin/describe"
	"github.com/moffa90/go-modbin/module"
)

// ValidityFlags are the checks a device runs on an installed module.
type ValidityFlags uint8

const (
	// ValidIntegrity is the CRC check
	ValidIntegrity ValidityFlags = 0x02

	// ValidDependencies is the dependency check
	ValidDependencies ValidityFlags = 0x04

	// ValidRange is the address range check
	ValidRange ValidityFlags = 0x08

	// ValidPlatform is the platform id check
	ValidPlatform ValidityFlags = 0x10

	// ValidProduct is the product id check
	ValidProduct ValidityFlags = 0x20
)

var validityNames = []struct {
	flag ValidityFlags
	name string
}{
	{ValidIntegrity, "integrity"},
	{ValidDependencies, "dependencies"},
	{ValidRange, "range"},
	{ValidPlatform, "platform"},
	{ValidProduct, "product"},
}

func (v ValidityFlags) String() string {
	var parts []string
	rest := v
	for _, n := range validityNames {
		if v&n.flag != 0 {
			parts = append(parts, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02X", uint8(rest)))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// FirmwareModule is an installed module. Each module owns its dependency
// list; dependencies carry only function, index and version.
type FirmwareModule struct {
	UUID           string
	Function       module.Function
	Location       module.Location
	Index          int
	Version        int
	MaxSize        int
	ValidityCheck  ValidityFlags
	ValidityValues ValidityFlags
	Dependencies   []*FirmwareModule

	// unmet is filled in by AreDependenciesMet
	unmet []describe.Dependency
}

// New builds a FirmwareModule from an inventory entry. An empty function or
// index is read as none or 0.
func New(m describe.Module) (*FirmwareModule, error) {
	fm := &FirmwareModule{
		UUID:           m.UUID,
		Version:        m.Version,
		MaxSize:        m.MaxSize,
		ValidityCheck:  ValidityFlags(m.ValidityCheck),
		ValidityValues: ValidityFlags(m.ValidityValues),
	}

	var err error
	if fm.Function, err = parseFunction(m.Function); err != nil {
		return nil, err
	}
	if fm.Location, err = module.ParseLocationChar(m.Location); err != nil {
		return nil, err
	}
	if fm.Index, err = parseIndex(m.Index); err != nil {
		return nil, err
	}

	for _, d := range m.Dependencies {
		dep, err := fromDependency(d)
		if err != nil {
			return nil, fmt.Errorf("%s dependency: %w", fm, err)
		}
		fm.Dependencies = append(fm.Dependencies, dep)
	}
	return fm, nil
}

func fromDependency(d describe.Dependency) (*FirmwareModule, error) {
	fn, err := parseFunction(d.Function)
	if err != nil {
		return nil, err
	}
	idx, err := parseIndex(d.Index)
	if err != nil {
		return nil, err
	}
	return &FirmwareModule{Function: fn, Index: idx, Version: d.Version}, nil
}

func parseFunction(s string) (module.Function, error) {
	if s == "" {
		return module.FunctionNone, nil
	}
	return module.ParseFunctionChar(s)
}

func parseIndex(i describe.Index) (int, error) {
	if i == "" {
		return 0, nil
	}
	n, err := i.Int()
	if err != nil {
		return 0, fmt.Errorf("invalid module index %q", string(i))
	}
	return n, nil
}

// FromDescribe builds a FirmwareModule for every inventory entry, in order.
func FromDescribe(d *describe.Describe) ([]*FirmwareModule, error) {
	if d == nil {
		return nil, fmt.Errorf("no describe message")
	}
	out := make([]*FirmwareModule, 0, len(d.Modules))
	for i, m := range d.Modules {
		fm, err := New(m)
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", i, err)
		}
		out = append(out, fm)
	}
	return out, nil
}

func (m *FirmwareModule) String() string {
	return fmt.Sprintf("%s/%d@%d", m.Function, m.Index, m.Version)
}

// IsValid reports whether every check the device ran passed.
func (m *FirmwareModule) IsValid() bool {
	return m.ValidityValues == m.ValidityCheck
}

// FailedChecks returns the checks that were run and did not pass.
func (m *FirmwareModule) FailedChecks() []ValidityFlags {
	var failed []ValidityFlags
	for _, n := range validityNames {
		if m.ValidityCheck&n.flag != 0 && m.ValidityValues&n.flag == 0 {
			failed = append(failed, n.flag)
		}
	}
	return failed
}

// Requirement returns the module's slot and version in describe form.
func (m *FirmwareModule) Requirement() describe.Dependency {
	return describe.Dependency{
		Function: m.Function.Char(),
		Index:    describe.Index(strconv.Itoa(m.Index)),
		Version:  m.Version,
	}
}

// ToDescribe returns the module as an inventory entry. Its dependency list
// is never nil, so it encodes as an array.
func (m *FirmwareModule) ToDescribe() describe.Module {
	d := describe.Module{
		MaxSize:        m.MaxSize,
		Location:       m.Location.Char(),
		ValidityCheck:  int(m.ValidityCheck),
		ValidityValues: int(m.ValidityValues),
		Function:       m.Function.Char(),
		Index:          describe.Index(strconv.Itoa(m.Index)),
		Version:        m.Version,
		UUID:           m.UUID,
		Dependencies:   make([]describe.Dependency, 0, len(m.Dependencies)),
	}
	for _, dep := range m.Dependencies {
		d.Dependencies = append(d.Dependencies, dep.Requirement())
	}
	return d
}

// AreDependenciesMet reports whether every direct dependency is met by some
// entry of device with the same function and index and at least the
// required version. Older copies of the slot, such as a backup, do not make
// a dependency unmet when another entry satisfies it. The unmet dependencies
// are kept for UnmetDependencies.
func (m *FirmwareModule) AreDependenciesMet(device []*FirmwareModule) bool {
	m.unmet = nil
	for _, dep := range m.Dependencies {
		req := dep.Requirement()
		if !satisfied(device, req) {
			m.unmet = append(m.unmet, req)
		}
	}
	return len(m.unmet) == 0
}

// UnmetDependencies returns the dependencies the last AreDependenciesMet
// call found unmet.
func (m *FirmwareModule) UnmetDependencies() []describe.Dependency {
	return m.unmet
}

func satisfied(device []*FirmwareModule, req describe.Dependency) bool {
	return slices.ContainsFunc(device, func(d *FirmwareModule) bool {
		have := d.Requirement()
		return have.Function == req.Function && have.Index == req.Index && have.Version >= req.Version
	})
}
