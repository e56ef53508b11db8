package asset

import (
	"bytes"
	"errors"
	"testing"

	"github.com/moffa90/go-modbin/module"
)

func testData(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31 + i/7)
	}
	return b
}

func TestCreateAssetModule(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		compress bool
	}{
		{name: "compressed", data: bytes.Repeat([]byte("particle "), 200), compress: true},
		{name: "uncompressed", data: testData(333), compress: false},
		{name: "empty compressed", data: []byte{}, compress: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := CreateAssetModule(tt.data, "asset.bin", WithCompression(tt.compress))
			if err != nil {
				t.Fatalf("CreateAssetModule() error = %v", err)
			}

			info, err := module.ParseBuffer(buf)
			if err != nil {
				t.Fatalf("ParseBuffer() error = %v", err)
			}
			p := info.Prefix
			if p.Function != module.FunctionAsset || p.StartAddress != 0 {
				t.Errorf("function = %s start = %s, want asset at 0", p.Function, p.StartAddress)
			}
			if !p.Flags.Has(module.FlagDropModuleInfo) {
				t.Errorf("flags = %s, want DROP_MODULE_INFO", p.Flags)
			}
			if p.Flags.Has(module.FlagCompressed) != tt.compress {
				t.Errorf("flags = %s, compressed want %v", p.Flags, tt.compress)
			}
			if !info.CRC.OK {
				t.Error("asset module CRC mismatch")
			}
			if n, ok := module.FindExtension[module.Name](info.Suffix.Extensions); !ok || n.Name != "asset.bin" {
				t.Errorf("NAME extension = %q (found %v)", n.Name, ok)
			}

			got, err := UnwrapAssetModule(buf)
			if err != nil {
				t.Fatalf("UnwrapAssetModule() error = %v", err)
			}
			if !bytes.Equal(got, tt.data) {
				t.Error("UnwrapAssetModule(CreateAssetModule(data)) != data")
			}
		})
	}
}

func TestReadAssetModuleErrors(t *testing.T) {
	app := testApp(t, 12, nil)

	corrupted, err := CreateAssetModule(testData(100), "x.bin", WithCompression(false))
	if err != nil {
		t.Fatal(err)
	}
	info, err := module.ParseBuffer(corrupted)
	if err != nil {
		t.Fatal(err)
	}
	corrupted[info.PayloadStart()] ^= 0xFF

	tests := []struct {
		name    string
		buf     []byte
		wantErr error
	}{
		{name: "application module", buf: app, wantErr: ErrNotAsset},
		{name: "payload does not match hash", buf: corrupted, wantErr: ErrHashMismatch},
		{name: "not a module", buf: []byte{1, 2, 3}, wantErr: module.ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAssetModule(tt.buf)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ReadAssetModule() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsAssetValid(t *testing.T) {
	data := []byte("hello")
	dep := File{Name: "hello.txt", Data: data}.Dependency()

	tests := []struct {
		name    string
		data    []byte
		dep     module.AssetDependency
		want    bool
		wantErr error
	}{
		{name: "matching", data: data, dep: dep, want: true},
		{name: "different data", data: []byte("hellO"), dep: dep, want: false},
		{
			name:    "unknown hash type",
			data:    data,
			dep:     module.AssetDependency{HashType: 7, Hash: dep.Hash},
			wantErr: ErrUnrecognizedHashType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsAssetValid(tt.data, tt.dep)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("IsAssetValid() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("IsAssetValid() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsAssetValid() = %v, want %v", got, tt.want)
			}
		})
	}
}
