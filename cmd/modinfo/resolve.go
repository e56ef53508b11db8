package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-modbin/describe"
	"github.com/moffa90/go-modbin/firmware"
	"github.com/moffa90/go-modbin/module"
	"github.com/moffa90/go-modbin/resolver"
)

var (
	describePath string
	storeDir     string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve FILE",
	Short: "List the modules a device needs before FILE can run on it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := readDescribe(describePath)
		if err != nil {
			return err
		}
		info, err := module.ParseFile(args[0], cfg.moduleOptions()...)
		if err != nil {
			return err
		}

		store, err := resolver.LoadCandidates(afero.NewOsFs(), storeDir, cfg.moduleOptions()...)
		if err != nil {
			if store == nil {
				return err
			}
			logger.Warn("Some store modules were skipped", "err", err)
		}
		logger.Debug("Loaded module store", "dir", storeDir, "modules", len(store))

		r := resolver.New(store,
			resolver.WithLogger(logger),
			resolver.WithConcurrency(cfg.Concurrency),
		)
		res, err := r.ResolveDependencies(cmd.Context(), desc, info)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, res)
		}

		var b strings.Builder
		b.WriteString(TitleStyle.Render("Updates") + "\n")
		if len(res.Updates) == 0 {
			b.WriteString(SuccessStyle.Render("  device is up to date") + "\n")
		}
		for i, c := range res.Updates {
			b.WriteString(field(fmt.Sprintf("  %d.", i+1), fmt.Sprintf("%s (%s)", c.Name, c.Requirement())))
		}
		if len(res.Missing) > 0 {
			b.WriteString(TitleStyle.Render("Missing") + "\n")
			for _, m := range res.Missing {
				b.WriteString(WarningStyle.Render("  "+m.String()) + "\n")
			}
		}
		fmt.Fprint(out, b.String())
		return nil
	},
}

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Check the validity and dependencies of a device inventory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := readDescribe(describePath)
		if err != nil {
			return err
		}
		describe.RepairDescribeErrors(desc)

		mods, err := firmware.FromDescribe(desc)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, deviceReport(desc, mods))
		}

		var b strings.Builder
		b.WriteString(TitleStyle.Render("Device modules") + "\n")
		if v, ok := describe.GetSystemVersion(desc); ok {
			b.WriteString(field("System version", v))
		}
		for _, m := range mods {
			status := SuccessStyle.Render("ok")
			if !m.IsValid() {
				var failed []string
				for _, f := range m.FailedChecks() {
					failed = append(failed, f.String())
				}
				status = ErrorStyle.Render("failed: " + strings.Join(failed, ", "))
			}
			if !m.AreDependenciesMet(mods) {
				var unmet []string
				for _, d := range m.UnmetDependencies() {
					unmet = append(unmet, d.String())
				}
				status += " " + WarningStyle.Render("needs "+strings.Join(unmet, ", "))
			}
			b.WriteString(LabelStyle.Render(m.String()) + status + "\n")
		}
		fmt.Fprint(out, b.String())
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&describePath, "describe", "", "device describe message (JSON)")
	resolveCmd.Flags().StringVar(&storeDir, "store", ".", "directory of candidate modules")
	_ = resolveCmd.MarkFlagRequired("describe")

	deviceCmd.Flags().StringVar(&describePath, "describe", "", "device describe message (JSON)")
	_ = deviceCmd.MarkFlagRequired("describe")
}

// deviceModule is the JSON form of one device module check.
type deviceModule struct {
	describe.Module
	Valid        bool                  `json:"valid"`
	FailedChecks []string              `json:"failedChecks"`
	Unmet        []describe.Dependency `json:"unmet"`
}

type deviceOutput struct {
	SystemVersion *int           `json:"systemVersion,omitempty"`
	Modules       []deviceModule `json:"modules"`
}

func deviceReport(desc *describe.Describe, mods []*firmware.FirmwareModule) deviceOutput {
	report := deviceOutput{Modules: make([]deviceModule, 0, len(mods))}
	if v, ok := describe.GetSystemVersion(desc); ok {
		report.SystemVersion = &v
	}
	for _, m := range mods {
		dm := deviceModule{
			Module:       m.ToDescribe(),
			Valid:        m.IsValid(),
			FailedChecks: []string{},
			Unmet:        []describe.Dependency{},
		}
		for _, f := range m.FailedChecks() {
			dm.FailedChecks = append(dm.FailedChecks, f.String())
		}
		if !m.AreDependenciesMet(mods) {
			dm.Unmet = append(dm.Unmet, m.UnmetDependencies()...)
		}
		report.Modules = append(report.Modules, dm)
	}
	return report
}

func readDescribe(path string) (*describe.Describe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read describe message: %w", err)
	}
	return describe.Parse(data)
}
