package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-modbin/module"
)

var (
	outputPath string
	outputDir  string
)

var compressCmd = &cobra.Command{
	Use:   "compress FILE",
	Short: "Deflate a module payload and set the COMPRESSED flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return rewrite(args[0], outputPath, "compressed", func(buf []byte) ([]byte, error) {
			return module.CompressModule(buf, cfg.moduleOptions()...)
		})
	},
}

var decompressCmd = &cobra.Command{
	Use:   "decompress FILE",
	Short: "Inflate a compressed module payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return rewrite(args[0], outputPath, "decompressed", func(buf []byte) ([]byte, error) {
			return module.DecompressModule(buf, cfg.moduleOptions()...)
		})
	},
}

var combineCmd = &cobra.Command{
	Use:   "combine FILE...",
	Short: "Concatenate modules into one COMBINED image",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputPath == "" {
			return fmt.Errorf("--output is required")
		}
		mods := make([][]byte, 0, len(args))
		for _, path := range args {
			buf, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			mods = append(mods, buf)
		}
		out, err := module.CombineModules(mods, cfg.moduleOptions()...)
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputPath, out, 0o644); err != nil {
			return err
		}
		logger.Info("Combined modules", "count", len(mods), "output", outputPath, "size", len(out))
		return nil
	},
}

var splitCmd = &cobra.Command{
	Use:   "split FILE",
	Short: "Split a COMBINED image into its modules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		buf, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		mods, err := module.SplitCombinedModules(buf, cfg.moduleOptions()...)
		if err != nil {
			return err
		}

		dir := outputDir
		if dir == "" {
			dir = filepath.Dir(args[0])
		}
		base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		for i, m := range mods {
			name := filepath.Join(dir, fmt.Sprintf("%s-%d.bin", base, i))
			if err := os.WriteFile(name, m, 0o644); err != nil {
				return err
			}
			logger.Info("Wrote module", "index", i, "output", name, "size", len(m))
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{compressCmd, decompressCmd, combineCmd} {
		c.Flags().StringVarP(&outputPath, "output", "o", "", "output file")
	}
	splitCmd.Flags().StringVarP(&outputDir, "dir", "d", "", "output directory (default is the input directory)")
}

// rewrite applies fn to the module at in and writes the result to out,
// or back to in when out is empty.
func rewrite(in, out, verb string, fn func([]byte) ([]byte, error)) error {
	buf, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	res, err := fn(buf)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	if out == "" {
		out = in
	}
	if err := os.WriteFile(out, res, 0o644); err != nil {
		return err
	}
	logger.Info("Module "+verb, "input", in, "output", out, "before", len(buf), "after", len(res))
	return nil
}
