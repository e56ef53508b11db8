package platform

import (
	"slices"
	"strings"
	"testing"
)

func TestDefaultTable(t *testing.T) {
	all := All()
	if len(all) == 0 {
		t.Fatal("All() returned no platforms")
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Errorf("All() not sorted: %d before %d", all[i-1].ID, all[i].ID)
		}
	}
	for _, p := range all {
		if p.AssetGrowth != GrowUp && p.AssetGrowth != GrowDown {
			t.Errorf("platform %s has growth %q", p.Name, p.AssetGrowth)
		}
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		id      uint16
		name    string
		growth  Growth
		assets  bool
		missing bool
	}{
		{id: 6, name: "photon", growth: GrowUp, assets: false},
		{id: 12, name: "argon", growth: GrowDown, assets: true},
		{id: 32, name: "p2", growth: GrowDown, assets: true},
		{id: 35, name: "msom", growth: GrowDown, assets: true},
		{id: 999, missing: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Lookup(tt.id)
			if ok == tt.missing {
				t.Fatalf("Lookup(%d) ok = %v", tt.id, ok)
			}
			if tt.missing {
				return
			}
			if p.Name != tt.name || p.AssetGrowth != tt.growth || p.SupportsAssets() != tt.assets {
				t.Errorf("Lookup(%d) = %+v", tt.id, p)
			}
		})
	}

	if p, ok := Default().ByName("boron"); !ok || p.ID != 13 {
		t.Errorf("ByName(boron) = %+v, %v", p, ok)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid",
			input: `
[[platform]]
id = 99
name = "devkit"
asset_growth = "up"
max_module_size = 4096
max_asset_size = 1024
max_total_assets_size = 2048
`,
		},
		{
			name: "duplicate id",
			input: `
[[platform]]
id = 1
name = "a"
asset_growth = "up"
[[platform]]
id = 1
name = "b"
asset_growth = "down"
`,
			wantErr: true,
			errMsg:  "duplicate id",
		},
		{
			name: "bad growth",
			input: `
[[platform]]
id = 1
name = "a"
asset_growth = "sideways"
`,
			wantErr: true,
			errMsg:  "invalid asset_growth",
		},
		{
			name: "unknown key",
			input: `
[[platform]]
id = 1
name = "a"
asset_growth = "up"
colour = "red"
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Load(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Load() expected error, got nil")
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %q, want it to contain %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			p, ok := tbl.Lookup(99)
			if !ok || p.MaxTotalAssetsSize != 2048 {
				t.Errorf("Lookup(99) = %+v, %v", p, ok)
			}
		})
	}
}

func TestTableAllOrdersLoadedIDs(t *testing.T) {
	tbl, err := Load(strings.NewReader(`
[[platform]]
id = 32
name = "p2"
asset_growth = "down"

[[platform]]
id = 6
name = "photon"
asset_growth = "up"

[[platform]]
id = 12
name = "argon"
asset_growth = "down"
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var ids []uint16
	for _, p := range tbl.All() {
		ids = append(ids, p.ID)
	}
	if want := []uint16{6, 12, 32}; !slices.Equal(ids, want) {
		t.Errorf("All() ids = %v, want %v", ids, want)
	}
}
