package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-modbin/asset"
)

var (
	assetName  string
	noCompress bool
)

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Wrap, unwrap and attach asset modules",
}

var assetWrapCmd = &cobra.Command{
	Use:   "wrap FILE",
	Short: "Wrap a file as an asset module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := cfg.assetOptions()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		name := assetName
		if name == "" {
			name = filepath.Base(args[0])
		}
		buf, err := asset.CreateAssetModule(data, name, append(opts, asset.WithCompression(!noCompress))...)
		if err != nil {
			return err
		}
		out := outputPath
		if out == "" {
			out = args[0] + ".bin"
		}
		if err := os.WriteFile(out, buf, 0o644); err != nil {
			return err
		}
		logger.Info("Wrapped asset", "name", name, "size", len(data), "module", len(buf), "output", out)
		return nil
	},
}

var assetUnwrapCmd = &cobra.Command{
	Use:   "unwrap FILE",
	Short: "Extract and verify the contents of an asset module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := cfg.assetOptions()
		if err != nil {
			return err
		}
		buf, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		f, err := asset.ReadAssetModule(buf, opts...)
		if err != nil {
			return err
		}
		out := outputPath
		if out == "" {
			out = filepath.Join(filepath.Dir(args[0]), f.Name)
		}
		if err := os.WriteFile(out, f.Data, 0o644); err != nil {
			return err
		}
		logger.Info("Unwrapped asset", "name", f.Name, "size", len(f.Data), "output", out)
		return nil
	},
}

var assetAttachCmd = &cobra.Command{
	Use:   "attach APP [ASSET...]",
	Short: "Record asset dependencies in an application module",
	Long: `Rewrites the application suffix so it references each asset by name and
SHA-256 hash. With no assets the existing asset dependencies are removed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := cfg.assetOptions()
		if err != nil {
			return err
		}
		return rewrite(args[0], outputPath, "updated", func(buf []byte) ([]byte, error) {
			return asset.UpdateModuleAssetDependencies(buf, pathFiles(args[1:]), opts...)
		})
	},
}

var bundleCmd = &cobra.Command{
	Use:   "bundle APP [ASSET...]",
	Short: "Package an application and its assets in a zip bundle",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputPath == "" {
			return fmt.Errorf("--output is required")
		}
		opts, err := cfg.assetOptions()
		if err != nil {
			return err
		}
		opts = append(opts, asset.WithFs(afero.NewOsFs()))
		data, err := asset.CreateApplicationAndAssetBundle(asset.File{Path: args[0]}, pathFiles(args[1:]), opts...)
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			return err
		}
		logger.Info("Created bundle", "assets", len(args)-1, "output", outputPath, "size", len(data))
		return nil
	},
}

var unbundleCmd = &cobra.Command{
	Use:   "unbundle FILE",
	Short: "Extract the application and assets from a bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		b, err := asset.UnpackApplicationAndAssetBundle(data)
		if err != nil {
			return err
		}

		dir := outputDir
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(filepath.Join(dir, asset.AssetsDir), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, b.Application.Name), b.Application.Data, 0o644); err != nil {
			return err
		}
		for _, a := range b.Assets {
			if err := os.WriteFile(filepath.Join(dir, asset.AssetsDir, a.Name), a.Data, 0o644); err != nil {
				return err
			}
		}
		logger.Info("Extracted bundle", "application", b.Application.Name, "assets", len(b.Assets), "dir", dir)
		return nil
	},
}

func init() {
	assetWrapCmd.Flags().StringVar(&assetName, "name", "", "asset name (default is the file name)")
	assetWrapCmd.Flags().BoolVar(&noCompress, "no-compress", false, "store the payload uncompressed")
	for _, c := range []*cobra.Command{assetWrapCmd, assetUnwrapCmd, assetAttachCmd, bundleCmd} {
		c.Flags().StringVarP(&outputPath, "output", "o", "", "output file")
	}
	unbundleCmd.Flags().StringVarP(&outputDir, "dir", "d", "", "output directory (default is the working directory)")

	assetCmd.AddCommand(assetWrapCmd, assetUnwrapCmd, assetAttachCmd)
}

func pathFiles(paths []string) []asset.File {
	files := make([]asset.File, 0, len(paths))
	for _, p := range paths {
		files = append(files, asset.File{Path: p})
	}
	return files
}
