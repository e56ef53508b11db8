// Package platform describes the device platforms a module can target:
// identifiers, size limits and the direction an application module grows
// when asset dependencies are added.
//
// The built-in table is embedded from platforms.toml. A replacement table
// can be read with Load:
//
//	f, _ := os.Open("platforms.toml")
//	tbl, err := platform.Load(f)
//	p, ok := tbl.Lookup(32)
package platform

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/exp/maps"
)

//go:embed platforms.toml
var builtinTOML []byte

// Growth is the direction an application module grows when its suffix gets larger.
type Growth string

const (
	// GrowDown keeps the end address and moves the start address down
	GrowDown Growth = "down"

	// GrowUp keeps the start address and moves the end address up
	GrowUp Growth = "up"
)

// Platform is a single entry of the platform table.
type Platform struct {
	ID          uint16 `toml:"id" json:"id"`
	Name        string `toml:"name" json:"name"`
	DisplayName string `toml:"display_name" json:"displayName"`
	Generation  int    `toml:"generation" json:"generation"`
	MCU         string `toml:"mcu" json:"mcu"`

	// AssetGrowth is the growth policy applied by asset dependency updates
	AssetGrowth Growth `toml:"asset_growth" json:"assetGrowth"`

	// MaxModuleSize is the largest application module the platform accepts
	MaxModuleSize int `toml:"max_module_size" json:"maxModuleSize"`

	// MaxAssetSize is the largest single asset; 0 means assets are unsupported
	MaxAssetSize int `toml:"max_asset_size" json:"maxAssetSize"`

	// MaxTotalAssetsSize is the largest combined size of all assets
	MaxTotalAssetsSize int `toml:"max_total_assets_size" json:"maxTotalAssetsSize"`
}

// SupportsAssets reports whether the platform can store assets.
func (p Platform) SupportsAssets() bool {
	return p.MaxAssetSize > 0
}

// Table maps platform ids to platforms.
type Table struct {
	platforms map[uint16]Platform
}

type tableFile struct {
	Platform []Platform `toml:"platform"`
}

// Load decodes a platform table from TOML. Every entry needs a unique id, a
// name and a growth policy of "up" or "down".
func Load(r io.Reader) (*Table, error) {
	var f tableFile
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode platform table: %w", err)
	}

	t := &Table{platforms: make(map[uint16]Platform, len(f.Platform))}
	for _, p := range f.Platform {
		if p.Name == "" {
			return nil, fmt.Errorf("platform %d: missing name", p.ID)
		}
		if p.AssetGrowth != GrowUp && p.AssetGrowth != GrowDown {
			return nil, fmt.Errorf("platform %s: invalid asset_growth %q", p.Name, p.AssetGrowth)
		}
		if p.MaxModuleSize < 0 || p.MaxAssetSize < 0 || p.MaxTotalAssetsSize < 0 {
			return nil, fmt.Errorf("platform %s: negative size limit", p.Name)
		}
		if _, dup := t.platforms[p.ID]; dup {
			return nil, fmt.Errorf("platform %s: duplicate id %d", p.Name, p.ID)
		}
		t.platforms[p.ID] = p
	}
	return t, nil
}

var builtin = sync.OnceValues(func() (*Table, error) {
	return Load(bytes.NewReader(builtinTOML))
})

// Default returns the built-in platform table.
func Default() *Table {
	t, err := builtin()
	if err != nil {
		panic(fmt.Sprintf("platform: embedded table is invalid: %v", err))
	}
	return t
}

// Lookup returns the platform with the given id.
func (t *Table) Lookup(id uint16) (Platform, bool) {
	p, ok := t.platforms[id]
	return p, ok
}

// ByName returns the platform with the given short name.
func (t *Table) ByName(name string) (Platform, bool) {
	for _, p := range t.platforms {
		if p.Name == name {
			return p, true
		}
	}
	return Platform{}, false
}

// All returns every platform ordered by id.
func (t *Table) All() []Platform {
	out := make([]Platform, 0, len(t.platforms))
	ids := maps.Keys(t.platforms)
	slices.Sort(ids)
	for _, id := range ids {
		out = append(out, t.platforms[id])
	}
	return out
}

// Lookup returns the platform with the given id from the built-in table.
func Lookup(id uint16) (Platform, bool) {
	return Default().Lookup(id)
}

// All returns every built-in platform ordered by id.
func All() []Platform {
	return Default().All()
}
