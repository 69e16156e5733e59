package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sdkproj/internal/cli/output"
	"github.com/leapstack-labs/sdkproj/internal/descriptor"
	"github.com/leapstack-labs/sdkproj/internal/pipeline"
)

// Code optimization levels accepted by --optimization.
const (
	OptimizationRelease = "release"
	OptimizationDebug   = "debug"
)

// ConversionOutput is the JSON form of one conversion.
type ConversionOutput struct {
	Path       string   `json:"path"`
	Mode       string   `json:"mode"`
	Changed    bool     `json:"changed"`
	Skipped    bool     `json:"skipped"`
	Reason     string   `json:"reason,omitempty"`
	Sdk        string   `json:"sdk,omitempty"`
	Scaffolded []string `json:"scaffolded,omitempty"`
}

// ConvertSummary totals a batch.
type ConvertSummary struct {
	Total   int `json:"total"`
	Changed int `json:"changed"`
	Skipped int `json:"skipped"`
}

// ConvertOutput is the JSON document printed by convert.
type ConvertOutput struct {
	DryRun      bool               `json:"dry_run"`
	Conversions []ConversionOutput `json:"conversions"`
	Summary     ConvertSummary     `json:"summary"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	var (
		modeFlag     string
		optimization string
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "convert [paths...]",
		Short: "Rewrite generated .csproj files into SDK-style projects",
		Long: `Rewrite generated project descriptors into the SDK-referencing layout.

Each descriptor gets an Sdk root attribute, imports of the companion
<Project>.UnityShared/.UnityEditor .props and .targets files, and a tagged
generator version. Missing companion files are created.

Directories are expanded to the .csproj files directly inside them. With no
arguments the project directory is used. Descriptors that were already
converted are left alone.`,
		Example: `  # Convert every descriptor in the project
  sdkproj convert

  # Convert for a player build (editor imports are skipped)
  sdkproj convert --mode build Assembly-CSharp.csproj

  # Preview without writing
  sdkproj convert --dry-run -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := descriptor.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			debug, err := parseOptimization(optimization)
			if err != nil {
				return err
			}

			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 0 {
				args = []string{cc.Cfg.ProjectDir}
			}
			paths, err := pipeline.Discover(args)
			if err != nil {
				return err
			}

			conv, err := cc.NewConverter(ConverterOptions{Debug: debug, DryRun: dryRun})
			if err != nil {
				return err
			}

			results, err := conv.ConvertAll(cmd.Context(), paths, mode)
			if err != nil {
				return err
			}
			return renderConversions(cc.Renderer, cc.Cfg.ProjectDir, results, dryRun)
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "edit", "Regeneration mode (edit|build)")
	cmd.Flags().StringVar(&optimization, "optimization", OptimizationRelease, "Host code optimization (release|debug)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changes without writing files")
	cmd.Flags().Bool("directory-build", true, "Create Directory.Build.props/.targets when missing")

	_ = cmd.RegisterFlagCompletionFunc("mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"edit", "build"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("optimization", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{OptimizationRelease, OptimizationDebug}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func parseOptimization(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", OptimizationRelease:
		return false, nil
	case OptimizationDebug:
		return true, nil
	default:
		return false, fmt.Errorf("unknown optimization %q (expected release or debug)", s)
	}
}

func toConversionOutput(res pipeline.Result) ConversionOutput {
	return ConversionOutput{
		Path:       res.Path,
		Mode:       res.Mode.String(),
		Changed:    res.Changed,
		Skipped:    res.Skipped,
		Reason:     res.Reason,
		Sdk:        res.Sdk,
		Scaffolded: res.Scaffolded,
	}
}

// displayPath shortens path relative to the project directory when possible.
func displayPath(projectDir, path string) string {
	if rel, err := filepath.Rel(projectDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func renderConversions(r *output.Renderer, projectDir string, results []pipeline.Result, dryRun bool) error {
	doc := ConvertOutput{DryRun: dryRun, Conversions: make([]ConversionOutput, 0, len(results))}
	for _, res := range results {
		doc.Conversions = append(doc.Conversions, toConversionOutput(res))
		doc.Summary.Total++
		if res.Changed {
			doc.Summary.Changed++
		}
		if res.Skipped {
			doc.Summary.Skipped++
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(doc)
	}

	title := "Conversions"
	if dryRun {
		title += " (dry run)"
	}
	r.Header(1, title)

	if len(results) == 0 {
		r.Muted("No .csproj files found")
		return nil
	}

	for _, res := range results {
		name := displayPath(projectDir, res.Path)
		for _, p := range res.Scaffolded {
			r.StatusLine(displayPath(projectDir, p), output.StatusSuccess, "created")
		}
		switch {
		case res.Skipped:
			r.StatusLine(name, output.StatusSkipped, res.Reason)
		case dryRun:
			r.StatusLine(name, output.StatusSuccess, "would rewrite "+sdkDetail(res.Sdk))
		default:
			r.StatusLine(name, output.StatusSuccess, "rewritten "+sdkDetail(res.Sdk))
		}
	}

	r.Println("")
	r.Muted(fmt.Sprintf("%d total, %d changed, %d skipped", doc.Summary.Total, doc.Summary.Changed, doc.Summary.Skipped))
	return nil
}

func sdkDetail(id string) string {
	if id == "" {
		return "(sdk not stamped)"
	}
	return "(" + id + ")"
}
