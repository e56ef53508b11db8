package describe

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/moffa90/go-modbin/module"
)

const photonDescribe = `{"p":6,"m":[
{"s":16384,"l":"m","vc":30,"vv":30,"f":"b","n":"0","v":11,"d":[]},
{"s":262144,"l":"m","vc":30,"vv":30,"f":"s","n":"1","v":109,"d":[]},
{"s":262144,"l":"m","vc":30,"vv":30,"f":"s","n":2,"v":109,"d":[{"f":"s","n":"1","v":109}]},
{"s":131072,"l":"m","vc":30,"vv":26,"u":"900DF00D","f":"u","n":"1","v":4,"d":[{"f":"s","n":"2","v":109}]},
{"s":131072,"l":"f","vc":30,"vv":0,"d":[]}
]}`

func TestParse(t *testing.T) {
	d, err := Parse([]byte(photonDescribe))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d.PlatformID != 6 || len(d.Modules) != 5 {
		t.Fatalf("Parse() = platform %d with %d modules", d.PlatformID, len(d.Modules))
	}
	if d.Modules[2].Index != "2" {
		t.Errorf("numeric index decoded as %q, want \"2\"", d.Modules[2].Index)
	}
	user := d.Modules[3]
	if user.UUID != "900DF00D" || user.ValidityValues != 26 {
		t.Errorf("user module = %+v", user)
	}
	want := []Dependency{{Function: "s", Index: "2", Version: 109}}
	if !reflect.DeepEqual(user.Dependencies, want) {
		t.Errorf("dependencies = %v, want %v", user.Dependencies, want)
	}

	if _, err := Parse([]byte(`{"m":[{"n":true}]}`)); err == nil {
		t.Error("Parse() accepted a boolean index")
	}
}

func TestDescribeJSONRoundTrip(t *testing.T) {
	d, err := Parse([]byte(photonDescribe))
	if err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse(Marshal()) error = %v", err)
	}
	if !reflect.DeepEqual(d, again) {
		t.Errorf("round trip changed the inventory:\n%+v\n%+v", d, again)
	}
}

func TestRepairDescribeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   []Module
		want []Module
	}{
		{
			name: "unnamed system modules",
			in: []Module{
				{Location: "m", Function: "b", Version: 7},
				{Location: "m", Version: 100},
				{Location: "m", Function: "s", Version: 100},
				{Location: "m", Function: "u", Index: "1"},
			},
			want: []Module{
				{Location: "m", Function: "b", Index: "0", Version: 7},
				{Location: "m", Function: "s", Index: "1", Version: 100},
				{Location: "m", Function: "s", Index: "2", Version: 100},
				{Location: "m", Function: "u", Index: "1"},
			},
		},
		{
			name: "named modules count as previous",
			in: []Module{
				{Location: "m", Function: "b", Index: "0"},
				{Location: "m", Function: "s", Index: "1"},
				{Location: "m"},
				{Location: "m"},
			},
			want: []Module{
				{Location: "m", Function: "b", Index: "0"},
				{Location: "m", Function: "s", Index: "1"},
				{Location: "m", Function: "s", Index: "2"},
				{Location: "m", Function: "s", Index: "3"},
			},
		},
		{
			name: "unnamed after named system part",
			in: []Module{
				{Location: "m", Function: "b", Index: "0", Version: 1},
				{Location: "m", Function: "s", Index: "1", Version: 100},
				{Location: "m", Version: 100},
			},
			want: []Module{
				{Location: "m", Function: "b", Index: "0", Version: 1},
				{Location: "m", Function: "s", Index: "1", Version: 100},
				{Location: "m", Function: "s", Index: "2", Version: 100},
			},
		},
		{
			name: "other locations untouched",
			in: []Module{
				{Location: "f"},
				{Location: "m", Function: "s"},
			},
			want: []Module{
				{Location: "f"},
				{Location: "m", Function: "s", Index: "0"},
			},
		},
		{
			name: "stops at user module",
			in: []Module{
				{Location: "m", Function: "u"},
				{Location: "m"},
			},
			want: []Module{
				{Location: "m", Function: "u"},
				{Location: "m"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Describe{Modules: tt.in}
			RepairDescribeErrors(d)
			if !reflect.DeepEqual(d.Modules, tt.want) {
				t.Errorf("RepairDescribeErrors() =\n%+v\nwant\n%+v", d.Modules, tt.want)
			}

			twice := d.Clone()
			RepairDescribeErrors(twice)
			if !reflect.DeepEqual(twice, d) {
				t.Error("repairing twice differs from repairing once")
			}
		})
	}
}

func TestGetSystemVersion(t *testing.T) {
	tests := []struct {
		name    string
		modules []Module
		want    int
		wantOK  bool
	}{
		{
			name:    "two matching",
			modules: []Module{{Function: "s", Version: 2}, {Function: "s", Version: 2}, {Function: "u", Version: 9}},
			want:    2,
			wantOK:  true,
		},
		{
			name:    "versions disagree",
			modules: []Module{{Function: "s", Version: 2}, {Function: "s", Version: 3}},
		},
		{
			name:    "single system module",
			modules: []Module{{Function: "s", Version: 2}},
		},
		{
			name:    "three system modules",
			modules: []Module{{Function: "s", Version: 2}, {Function: "s", Version: 2}, {Function: "s", Version: 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GetSystemVersion(&Describe{Modules: tt.modules})
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("GetSystemVersion() = %d, %v, want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFromModuleDependency(t *testing.T) {
	got := FromModuleDependency(module.Dependency{Function: module.FunctionSystemPart, Index: 2, Version: 1213})
	want := Dependency{Function: "s", Index: "2", Version: 1213}
	if got != want {
		t.Errorf("FromModuleDependency() = %v, want %v", got, want)
	}
}
