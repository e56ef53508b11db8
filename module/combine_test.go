package module

import (
	"bytes"
	"errors"
	"testing"
)

func TestSplitCombinedModulesRoundTrip(t *testing.T) {
	mods := [][]byte{
		testModule(t, nil),
		testModule(t, func(p *Parts) {
			p.Prefix.Function = FunctionSystemPart
			p.Prefix.Index = 2
			p.Payload = testPayload(300)
			p.Suffix.Extensions = []Extension{Name{Name: "system-part2"}}
		}),
		testModule(t, func(p *Parts) {
			p.VectorTable = bytes.Repeat([]byte{0xFF}, 0x200)
			p.Prefix.Function = FunctionBootloader
			p.Prefix.Index = 0
			p.Payload = testPayload(64)
		}),
	}

	combined, err := CombineModules(mods)
	if err != nil {
		t.Fatalf("CombineModules() error = %v", err)
	}
	if want := len(mods[0]) + len(mods[1]) + len(mods[2]); len(combined) != want {
		t.Fatalf("combined length = %d, want %d", len(combined), want)
	}

	split, err := SplitCombinedModules(combined)
	if err != nil {
		t.Fatalf("SplitCombinedModules() error = %v", err)
	}
	if len(split) != len(mods) {
		t.Fatalf("split into %d modules, want %d", len(split), len(mods))
	}
	for i := range mods {
		if !bytes.Equal(split[i], mods[i]) {
			t.Errorf("module %d differs after split(combine())", i)
		}
	}
}

func TestCombineModulesFlags(t *testing.T) {
	m1 := testModule(t, nil)
	m2 := testModule(t, func(p *Parts) { p.Prefix.Index = 2 })

	combined, err := CombineModules([][]byte{m1, m2})
	if err != nil {
		t.Fatalf("CombineModules() error = %v", err)
	}

	first, err := ParseBuffer(combined)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ParseBuffer(combined[len(m1):])
	if err != nil {
		t.Fatal(err)
	}
	if !first.Prefix.Flags.Has(FlagCombined) {
		t.Error("first module is not flagged COMBINED")
	}
	if second.Prefix.Flags.Has(FlagCombined) {
		t.Error("last module is flagged COMBINED")
	}
	if !first.CRC.OK || !second.CRC.OK {
		t.Error("combined modules have stale checksums")
	}
}

func TestCombineModulesEmpty(t *testing.T) {
	if _, err := CombineModules(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("CombineModules(nil) error = %v, want ErrEmpty", err)
	}
}

func TestSplitSingleModule(t *testing.T) {
	m := testModule(t, nil)
	split, err := SplitCombinedModules(m)
	if err != nil {
		t.Fatalf("SplitCombinedModules() error = %v", err)
	}
	if len(split) != 1 || !bytes.Equal(split[0], m) {
		t.Error("single module was not returned unchanged")
	}
}
