package resolver

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/moffa90/go-modbin/describe"
	"github.com/moffa90/go-modbin/module"
)

func dep(f string, n string, v int) describe.Dependency {
	return describe.Dependency{Function: f, Index: describe.Index(n), Version: v}
}

func mod(f string, n string, v int, deps ...describe.Dependency) describe.Module {
	return describe.Module{Location: "m", Function: f, Index: describe.Index(n), Version: v, Dependencies: deps}
}

func TestSolve(t *testing.T) {
	tests := []struct {
		name      string
		inventory []describe.Module
		req       describe.Dependency
		want      []describe.Module
	}{
		{
			name: "dependency already met",
			inventory: []describe.Module{
				mod("s", "1", 2),
				mod("s", "2", 2, dep("s", "1", 2)),
			},
			req:  dep("s", "2", 3),
			want: []describe.Module{mod("s", "2", 2, dep("s", "1", 2))},
		},
		{
			name: "dependency precedes dependent",
			inventory: []describe.Module{
				mod("s", "1", 1),
				mod("s", "2", 2, dep("s", "1", 2)),
			},
			req: dep("s", "2", 3),
			want: []describe.Module{
				mod("s", "1", 1),
				mod("s", "2", 2, dep("s", "1", 2)),
			},
		},
		{
			name: "requirement met",
			inventory: []describe.Module{
				mod("s", "1", 5),
			},
			req:  dep("s", "1", 5),
			want: []describe.Module{},
		},
		{
			name: "duplicates collapse",
			inventory: []describe.Module{
				mod("s", "1", 1),
				mod("s", "1", 1),
			},
			req:  dep("s", "1", 2),
			want: []describe.Module{mod("s", "1", 1)},
		},
		{
			name: "cycle terminates",
			inventory: []describe.Module{
				mod("s", "1", 1, dep("s", "2", 2)),
				mod("s", "2", 1, dep("s", "1", 2)),
			},
			req: dep("s", "1", 2),
			want: []describe.Module{
				mod("s", "2", 1, dep("s", "1", 2)),
				mod("s", "1", 1, dep("s", "2", 2)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Solve(tt.inventory, tt.req)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Solve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// testCandidate assembles a module and wraps it as a Candidate. The first two
// dependencies go to the prefix slots, the rest to DEPENDENCY extensions.
func testCandidate(t *testing.T, name string, fn module.Function, idx uint8, ver uint16, deps ...module.Dependency) *Candidate {
	t.Helper()
	parts := module.Parts{
		Prefix: module.Prefix{
			StartAddress:  0x00030000,
			ModuleVersion: ver,
			PlatformID:    12,
			Function:      fn,
			Index:         idx,
		},
		Payload: bytes.Repeat([]byte{byte(idx)}, 128),
	}
	for i, d := range deps {
		switch i {
		case 0:
			parts.Prefix.Dep1 = d
		case 1:
			parts.Prefix.Dep2 = d
		default:
			parts.Suffix.Extensions = append(parts.Suffix.Extensions, d)
		}
	}
	buf, err := module.Assemble(parts)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	c, err := NewCandidate(name, buf)
	if err != nil {
		t.Fatalf("NewCandidate() error = %v", err)
	}
	return c
}

func TestRetrieveModules(t *testing.T) {
	oldSys := testCandidate(t, "system-old.bin", module.FunctionSystemPart, 1, 250)
	newSys := testCandidate(t, "system-new.bin", module.FunctionSystemPart, 1, 300)
	newer := testCandidate(t, "system-newer.bin", module.FunctionSystemPart, 1, 400)
	boot := testCandidate(t, "bootloader.bin", module.FunctionBootloader, 0, 10)
	store := []*Candidate{oldSys, newSys, newer, boot, {Name: "unparsed.bin"}}

	got := RetrieveModules([]describe.Dependency{
		dep("s", "1", 300),
		dep("b", "0", 11),
		dep("b", "0", 10),
	}, store)

	want := []*Candidate{newSys, boot}
	if !reflect.DeepEqual(got, want) {
		names := make([]string, len(got))
		for i, c := range got {
			names[i] = c.Name
		}
		t.Errorf("RetrieveModules() = %v, want [system-new.bin bootloader.bin]", names)
	}
}

func resolverFixture(t *testing.T) (*describe.Describe, *module.Info, []*Candidate) {
	t.Helper()
	desc := &describe.Describe{Modules: []describe.Module{
		mod("b", "0", 5),
		mod("s", "1", 200, dep("b", "0", 5)),
		mod("s", "2", 50),
		mod("u", "1", 1, dep("s", "1", 200)),
	}}

	store := []*Candidate{
		testCandidate(t, "system-part1-250.bin", module.FunctionSystemPart, 1, 250),
		testCandidate(t, "system-part1-300.bin", module.FunctionSystemPart, 1, 300,
			module.Dependency{Function: module.FunctionBootloader, Index: 0, Version: 10}),
		testCandidate(t, "bootloader-10.bin", module.FunctionBootloader, 0, 10),
	}

	app := testCandidate(t, "app.bin", module.FunctionUserPart, 1, 6,
		module.Dependency{Function: module.FunctionSystemPart, Index: 1, Version: 300},
		module.Dependency{Function: module.FunctionSystemPart, Index: 2, Version: 100},
	)
	return desc, app.Info, store
}

func candidateNames(cs []*Candidate) []string {
	names := make([]string, 0, len(cs))
	for _, c := range cs {
		names = append(names, c.Name)
	}
	return names
}

func TestResolveDependencies(t *testing.T) {
	desc, binary, store := resolverFixture(t)

	var logs bytes.Buffer
	logger := log.NewWithOptions(&logs, log.Options{Level: log.DebugLevel, Prefix: "resolver"})
	r := New(store, WithLogger(logger), WithConcurrency(2))

	res, err := r.ResolveDependencies(context.Background(), desc, binary)
	if err != nil {
		t.Fatalf("ResolveDependencies() error = %v", err)
	}

	wantUpdates := []string{"bootloader-10.bin", "system-part1-300.bin"}
	if got := candidateNames(res.Updates); !reflect.DeepEqual(got, wantUpdates) {
		t.Errorf("updates = %v, want %v", got, wantUpdates)
	}
	wantMissing := []describe.Dependency{dep("s", "2", 100)}
	if !reflect.DeepEqual(res.Missing, wantMissing) {
		t.Errorf("missing = %v, want %v", res.Missing, wantMissing)
	}
	if !strings.Contains(logs.String(), "No updates available") {
		t.Errorf("log output lacks the missing requirement:\n%s", logs.String())
	}
}

func TestResolveDependenciesDepthLimit(t *testing.T) {
	desc, binary, store := resolverFixture(t)

	var logs bytes.Buffer
	logger := log.NewWithOptions(&logs, log.Options{Level: log.DebugLevel})
	r := New(store, WithLogger(logger), WithMaxDepth(1))

	res, err := r.ResolveDependencies(context.Background(), desc, binary)
	if err != nil {
		t.Fatalf("ResolveDependencies() error = %v", err)
	}
	if got := candidateNames(res.Updates); !reflect.DeepEqual(got, []string{"system-part1-300.bin"}) {
		t.Errorf("updates = %v, want only the system part", got)
	}
	if !strings.Contains(logs.String(), ErrTooDeep.Error()) {
		t.Errorf("log output lacks the failed branch:\n%s", logs.String())
	}
}

func TestResolveDependenciesNothingToDo(t *testing.T) {
	desc, _, store := resolverFixture(t)
	binary := testCandidate(t, "app.bin", module.FunctionUserPart, 1, 6,
		module.Dependency{Function: module.FunctionSystemPart, Index: 1, Version: 200}).Info

	res, err := New(store).ResolveDependencies(context.Background(), desc, binary)
	if err != nil {
		t.Fatalf("ResolveDependencies() error = %v", err)
	}
	if len(res.Updates) != 0 || len(res.Missing) != 0 {
		t.Errorf("resolution = %+v, want empty", res)
	}
	if res.Updates == nil || res.Missing == nil {
		t.Error("empty resolution has nil slices")
	}
}

func TestResolveDependenciesErrors(t *testing.T) {
	desc, binary, store := resolverFixture(t)
	r := New(store)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		ctx     context.Context
		desc    *describe.Describe
		binary  *module.Info
		wantErr error
	}{
		{name: "no describe", ctx: context.Background(), binary: binary, wantErr: ErrNoDescribe},
		{name: "no binary", ctx: context.Background(), desc: desc, wantErr: ErrNoBinary},
		{name: "cancelled", ctx: cancelled, desc: desc, binary: binary, wantErr: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ResolveDependencies(tt.ctx, tt.desc, tt.binary)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadCandidates(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := testCandidate(t, "boot.bin", module.FunctionBootloader, 0, 10)
	files := map[string][]byte{
		"/store/boot.bin":   c.Data,
		"/store/broken.bin": []byte("nope"),
		"/store/notes.txt":  []byte("ignored"),
	}
	for name, data := range files {
		if err := afero.WriteFile(fs, name, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := LoadCandidates(fs, "/store")
	if err == nil || !strings.Contains(err.Error(), "broken.bin") {
		t.Errorf("error = %v, want a report for broken.bin", err)
	}
	if len(got) != 1 || got[0].Name != "boot.bin" {
		t.Errorf("candidates = %v, want [boot.bin]", candidateNames(got))
	}
}
