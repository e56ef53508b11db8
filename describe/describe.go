// Package describe decodes the module inventory a device reports about
// itself (the "describe" message) and repairs the gaps older device firmware
// leaves in it.
//
// The inventory is the m array of the message:
//
//	{"p": 12, "m": [
//	  {"s": 49152, "l": "m", "vc": 30, "vv": 30, "f": "b", "n": "0", "v": 1200, "d": []},
//	  {"s": 671744, "l": "m", "vc": 30, "vv": 30, "f": "s", "n": "1", "v": 4100,
//	   "d": [{"f": "b", "n": "0", "v": 1200}]}
//	]}
package describe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/moffa90/go-modbin/module"
)

// Function and location codes used in describe messages.
const (
	FunctionSystem = "s"
	FunctionUser   = "u"
	LocationMain   = "m"
)

// Index is a module index. Devices report it as a string, some older
// firmware as a number; both decode to the decimal string form.
type Index string

// UnmarshalJSON implements json.Unmarshaler.
func (i *Index) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = Index(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid module index %s: %w", data, err)
	}
	*i = Index(n.String())
	return nil
}

// Int returns the numeric value of the index.
func (i Index) Int() (int, error) {
	return strconv.Atoi(string(i))
}

// Dependency is a requirement on another module: function, index and
// minimum version.
type Dependency struct {
	Function string `json:"f"`
	Index    Index  `json:"n"`
	Version  int    `json:"v"`
}

// Key identifies the module slot a dependency refers to, ignoring the version.
func (d Dependency) Key() string {
	return d.Function + "/" + string(d.Index)
}

func (d Dependency) String() string {
	return fmt.Sprintf("%s@%d", d.Key(), d.Version)
}

// FromModuleDependency converts a binary dependency slot to describe form.
func FromModuleDependency(d module.Dependency) Dependency {
	return Dependency{
		Function: d.Function.Char(),
		Index:    Index(strconv.Itoa(int(d.Index))),
		Version:  int(d.Version),
	}
}

// Module is a single inventory entry.
type Module struct {
	MaxSize        int          `json:"s"`
	Location       string       `json:"l"`
	ValidityCheck  int          `json:"vc"`
	ValidityValues int          `json:"vv"`
	Function       string       `json:"f"`
	Index          Index        `json:"n"`
	Version        int          `json:"v"`
	UUID           string       `json:"u,omitempty"`
	Dependencies   []Dependency `json:"d"`
}

// Requirement returns the module's own slot and version as a Dependency.
func (m Module) Requirement() Dependency {
	return Dependency{Function: m.Function, Index: m.Index, Version: m.Version}
}

// Describe is a device-reported module inventory.
type Describe struct {
	PlatformID int      `json:"p,omitempty"`
	Modules    []Module `json:"m"`
}

// Parse decodes a describe message.
func Parse(data []byte) (*Describe, error) {
	var d Describe
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse describe message: %w", err)
	}
	return &d, nil
}

// Clone returns a deep copy of d.
func (d *Describe) Clone() *Describe {
	c := &Describe{PlatformID: d.PlatformID, Modules: make([]Module, len(d.Modules))}
	for i, m := range d.Modules {
		m.Dependencies = append([]Dependency(nil), m.Dependencies...)
		c.Modules[i] = m
	}
	return c
}

// RepairDescribeErrors fills in the indexes older firmware omits from the
// main-location system modules. Entries are walked in order until the first
// user module. A module without an index gets the previous main-location
// module's index plus one, or "0" when it is the first, and repaired modules
// default to the system function. Repairing twice is the same as repairing once.
func RepairDescribeErrors(d *Describe) {
	if d == nil {
		return
	}
	prev := -1
	for i := range d.Modules {
		m := &d.Modules[i]
		if m.Function == FunctionUser {
			break
		}
		if m.Location != LocationMain {
			continue
		}
		if m.Index == "" {
			m.Index = Index(strconv.Itoa(prev + 1))
			if m.Function == "" {
				m.Function = FunctionSystem
			}
		}
		if n, err := m.Index.Int(); err == nil {
			prev = n
		}
	}
}

// GetSystemVersion returns the version shared by the two system modules of
// d. It returns false unless there are exactly two system modules with the
// same version.
func GetSystemVersion(d *Describe) (int, bool) {
	if d == nil {
		return 0, false
	}
	var versions []int
	for _, m := range d.Modules {
		if m.Function == FunctionSystem {
			versions = append(versions, m.Version)
		}
	}
	if len(versions) != 2 || versions[0] != versions[1] {
		return 0, false
	}
	return versions[0], true
}
