package module

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/moffa90/go-modbin/checksum"
)

func TestUpdatePrefixChangesOnlySelectedBytes(t *testing.T) {
	buf := testModule(t, nil)
	before := append([]byte(nil), buf...)

	v := uint16(0x0102)
	if err := UpdatePrefix(buf, PrefixFields{ModuleVersion: &v}); err != nil {
		t.Fatalf("UpdatePrefix() error = %v", err)
	}

	for i := range buf {
		changed := buf[i] != before[i]
		inField := i == offModuleVersion || i == offModuleVersion+1
		if changed != inField {
			t.Errorf("byte %d: changed = %v, want %v", i, changed, inField)
		}
	}

	info, err := ParseBuffer(buf)
	if err != nil {
		t.Fatalf("ParseBuffer() error = %v", err)
	}
	if info.Prefix.ModuleVersion != v {
		t.Errorf("ModuleVersion = %d, want %d", info.Prefix.ModuleVersion, v)
	}
	if info.CRC.OK {
		t.Error("CRC still matches after an unchecksummed patch")
	}

	if err := checksum.UpdateSHA256(buf); err != nil {
		t.Fatal(err)
	}
	if err := checksum.UpdateCRC32(buf); err != nil {
		t.Fatal(err)
	}
	info, _ = ParseBuffer(buf)
	if !info.CRC.OK {
		t.Error("CRC mismatch after recomputing checksums")
	}
}

func TestUpdatePrefixFromJSON(t *testing.T) {
	var f PrefixFields
	if err := json.Unmarshal([]byte(`{"moduleStartAddy":"0x000D0000","platformID":13}`), &f); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if f.EndAddress != nil || f.ModuleVersion != nil {
		t.Fatal("absent fields decoded as present")
	}

	buf := testModule(t, nil)
	if err := UpdatePrefix(buf, f); err != nil {
		t.Fatalf("UpdatePrefix() error = %v", err)
	}
	p, err := ReadPrefix(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.StartAddress != 0x000D0000 || p.PlatformID != 13 {
		t.Errorf("prefix = %s/%d, want 0x000d0000/13", p.StartAddress, p.PlatformID)
	}
}

func TestUpdateSuffix(t *testing.T) {
	id := uint32(4242)
	ver := uint16(17)

	tests := []struct {
		name    string
		suffix  Suffix
		fields  SuffixFields
		wantErr error
	}{
		{
			name:   "legacy product fields",
			suffix: Suffix{Legacy: true, ProductID: 1, ProductVersion: 1},
			fields: SuffixFields{ProductID: &id, ProductVersion: &ver},
		},
		{
			name:   "product data extension",
			suffix: Suffix{Extensions: []Extension{Name{Name: "a"}, ProductData{ID: 1, Version: 1}}},
			fields: SuffixFields{ProductID: &id, ProductVersion: &ver},
		},
		{
			name:    "no product fields",
			fields:  SuffixFields{ProductID: &id},
			wantErr: ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := testModule(t, func(p *Parts) { p.Suffix = tt.suffix })
			err := UpdateSuffix(buf, tt.fields)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("UpdateSuffix() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateSuffix() error = %v", err)
			}
			info, err := ParseBuffer(buf)
			if err != nil {
				t.Fatal(err)
			}
			if info.Suffix.ProductID != id || info.Suffix.ProductVersion != ver {
				t.Errorf("product = %d/%d, want %d/%d", info.Suffix.ProductID, info.Suffix.ProductVersion, id, ver)
			}
		})
	}
}

func TestUpdateSuffixUniqueIDAndCRC(t *testing.T) {
	buf := testModule(t, nil)

	if err := UpdateSuffix(buf, SuffixFields{UniqueID: HexBytes{1, 2}}); err == nil {
		t.Error("UpdateSuffix() accepted a 2-byte unique id")
	}

	uid := bytes.Repeat([]byte{0xAB}, 32)
	crc := uint32(0xDEADBEEF)
	if err := UpdateSuffix(buf, SuffixFields{UniqueID: uid, CRC: &crc}); err != nil {
		t.Fatalf("UpdateSuffix() error = %v", err)
	}
	info, err := ParseBuffer(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(info.Suffix.UniqueID, uid) {
		t.Errorf("unique id = %s", info.Suffix.UniqueID)
	}
	if info.CRC.Stored != crc {
		t.Errorf("stored crc = 0x%08X, want 0x%08X", info.CRC.Stored, crc)
	}
}
