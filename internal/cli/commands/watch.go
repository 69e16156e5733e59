package commands

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sdkproj/internal/cli/output"
	"github.com/leapstack-labs/sdkproj/internal/descriptor"
	"github.com/leapstack-labs/sdkproj/internal/pipeline"
	"github.com/leapstack-labs/sdkproj/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var (
		modeFlag     string
		optimization string
	)

	cmd := &cobra.Command{
		Use:   "watch [directory]",
		Short: "Convert descriptors whenever the IDE regenerates them",
		Long: `Watch a directory and convert each .csproj file shortly after it is written.

Writes are debounced per file (watch.debounce_ms) so a regeneration that
touches a descriptor several times is converted once. Stop with Ctrl+C.`,
		Example: `  sdkproj watch
  sdkproj watch --debounce-ms 500 ./MyGame`,
		Args: cobra.MaximumNArgs(1),
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

			dir := cc.Cfg.ProjectDir
			if len(args) == 1 {
				dir = args[0]
			}

			conv, err := cc.NewConverter(ConverterOptions{Debug: debug})
			if err != nil {
				return err
			}

			r := cc.Renderer
			var mu sync.Mutex
			w, err := watch.New(watch.Config{
				Dir:       dir,
				Mode:      mode,
				Debounce:  cc.Cfg.Watch.Debounce(),
				Converter: conv,
				Logger:    cc.Logger,
				OnResult: func(res pipeline.Result, err error) {
					mu.Lock()
					defer mu.Unlock()
					reportWatchResult(r, cc.Cfg.ProjectDir, res, err)
				},
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if r.EffectiveMode() != output.ModeJSON {
				r.Muted("Watching " + dir + " (Ctrl+C to stop)")
			}
			return w.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "edit", "Regeneration mode (edit|build)")
	cmd.Flags().StringVar(&optimization, "optimization", OptimizationRelease, "Host code optimization (release|debug)")
	cmd.Flags().Int("debounce-ms", 0, "Quiet period after a write before converting, in milliseconds")
	cmd.Flags().Bool("directory-build", true, "Create Directory.Build.props/.targets when missing")

	return cmd
}

func reportWatchResult(r *output.Renderer, projectDir string, res pipeline.Result, err error) {
	name := displayPath(projectDir, res.Path)
	if r.EffectiveMode() == output.ModeJSON {
		out := toConversionOutput(res)
		if err != nil {
			_ = r.JSON(map[string]any{"conversion": out, "error": err.Error()})
			return
		}
		_ = r.JSON(out)
		return
	}

	switch {
	case err != nil:
		r.StatusLine(name, output.StatusError, err.Error())
	case res.Skipped:
		r.StatusLine(name, output.StatusSkipped, res.Reason)
	default:
		r.StatusLine(name, output.StatusSuccess, "rewritten "+sdkDetail(res.Sdk))
	}
}
