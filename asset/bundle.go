package asset

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

// AssetsDir is the bundle directory holding asset files.
const AssetsDir = "assets/"

// Bundle is an application module with the assets it depends on.
type Bundle struct {
	Application File   `json:"application"`
	Assets      []File `json:"assets"`
}

// CreateApplicationAndAssetBundle packages an application and its assets in
// a zip archive: the application at the root, the assets under AssetsDir.
// When assets are given the application is first updated with
// UpdateModuleAssetDependencies; with no assets it is stored unchanged.
//
// Example:
//
//	zipped, err := asset.CreateApplicationAndAssetBundle(
//		asset.File{Path: "app.bin"},
//		[]asset.File{{Path: "assets/logo.png"}, {Name: "config.json", Data: cfg}},
//	)
func CreateApplicationAndAssetBundle(app File, assets []File, opts ...Option) ([]byte, error) {
	cfg := newConfig(opts)

	appFile, err := app.load(cfg.Fs)
	if err != nil {
		return nil, fmt.Errorf("application: %w", err)
	}
	files, err := loadFiles(cfg.Fs, assets)
	if err != nil {
		return nil, err
	}
	if err := checkEntryName(appFile.Name); err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := checkEntryName(f.Name); err != nil {
			return nil, err
		}
	}

	appData := appFile.Data
	if len(files) > 0 {
		appData, err = UpdateModuleAssetDependencies(appFile.Data, files, opts...)
		if err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := writeEntry(zw, appFile.Name, appData); err != nil {
		return nil, err
	}
	for _, f := range files {
		if err := writeEntry(zw, AssetsDir+f.Name, f.Data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish bundle: %w", err)
	}
	return buf.Bytes(), nil
}

// UnpackApplicationAndAssetBundle reads a bundle created by
// CreateApplicationAndAssetBundle. Assets keep their archive order and the
// result always has a non-nil Assets slice.
func UnpackApplicationAndAssetBundle(data []byte) (*Bundle, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}

	b := &Bundle{Assets: []File{}}
	haveApp := false
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		name := zf.Name
		if path.Clean(name) != name || strings.HasPrefix(name, "../") || path.IsAbs(name) {
			return nil, fmt.Errorf("%w: unsafe entry %q", ErrInvalidBundle, name)
		}
		contents, err := readEntry(zf)
		if err != nil {
			return nil, err
		}

		switch {
		case strings.HasPrefix(name, AssetsDir) && !strings.Contains(name[len(AssetsDir):], "/"):
			b.Assets = append(b.Assets, File{Name: name[len(AssetsDir):], Data: contents})
		case !strings.Contains(name, "/"):
			if haveApp {
				return nil, fmt.Errorf("%w: more than one application (%s, %s)", ErrInvalidBundle, b.Application.Name, name)
			}
			b.Application = File{Name: name, Data: contents}
			haveApp = true
		default:
			return nil, fmt.Errorf("%w: unexpected entry %q", ErrInvalidBundle, name)
		}
	}
	if !haveApp {
		return nil, fmt.Errorf("%w: no application", ErrInvalidBundle)
	}
	return b, nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func readEntry(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", zf.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", zf.Name, err)
	}
	return data, nil
}

func checkEntryName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid bundle entry name %q", name)
	}
	return nil
}
