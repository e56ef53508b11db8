package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"

	// verbose enables debug logging
	verbose bool

	// cfgFile is an explicit config file path
	cfgFile string

	// jsonOutput prints machine-readable output
	jsonOutput bool

	cfg    = DefaultConfig()
	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: AppName})

	rootCmd = &cobra.Command{
		Use:   AppName,
		Short: "Inspect and rewrite binary firmware modules",
		Long: TitleStyle.Render(AppName) + ` - inspect and rewrite binary firmware modules

Parses module prefixes and suffixes, verifies checksums, compresses and
combines modules, wraps assets and works out which modules a device needs
before a binary can run on it.

` + TitleStyle.Render("Examples:") + `
  modinfo parse tinker.bin
  modinfo compress app.bin -o app.z.bin
  modinfo resolve --describe describe.json --store ./firmware app.bin
  modinfo bundle app.bin assets/logo.png -o bundle.zip`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			cfg = loaded
			logger = newLogger(cfg)
			return nil
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/modinfo/modinfo.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of styled text")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(decompressCmd)
	rootCmd.AddCommand(combineCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(assetCmd)
	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(unbundleCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(platformsCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fmtValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}
