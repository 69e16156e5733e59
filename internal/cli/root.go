// Package cli provides the command-line interface for sdkproj.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sdkproj/internal/cli/commands"
	"github.com/leapstack-labs/sdkproj/internal/cli/config"
	"github.com/leapstack-labs/sdkproj/internal/cli/output"
	"github.com/leapstack-labs/sdkproj/internal/descriptor"
	"github.com/leapstack-labs/sdkproj/internal/sdk"
)

// Version is set at build time.
var Version = "0.1.0"

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "sdkproj",
		Short: "sdkproj - SDK-style project converter",
		Long: `sdkproj rewrites the .csproj files generated by a game-engine IDE
integration into SDK-style projects.

Converted descriptors reference an MSBuild SDK (resolved from the NuGet
registry at most once a day), import per-project .props and .targets
companions, and keep working with the IDE that regenerates them.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			ctx := context.WithValue(cmd.Context(), config.LoggerKey(), logger)
			ctx = config.NewContext(ctx, cfg)
			cmd.SetContext(ctx)

			if cfg.ConfigFile != "" {
				logger.Debug("using config file", "path", cfg.ConfigFile)
			}
			logger.Debug("project root", "dir", cfg.ProjectDir, "state", cfg.StatePath)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	commands.Version = Version
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
SDK-style project converter
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./sdkproj.yaml)")
	pf.String("project-dir", "", "Project root (default: directory holding sdkproj.yaml, else cwd)")
	pf.String("state", "", "Path to state database")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	pf.Int("concurrency", 0, "Descriptors converted in parallel")
	pf.String("strategy", "", "SDK strategy (custom|void)")
	pf.String("custom-sdk", "", "SDK identifier for the custom strategy (name/version)")
	pf.Bool("sdk-style", true, "Replace root attributes with an Sdk attribute")
	pf.StringSlice("kinds", nil, "Companion import kinds in order (shared,editor)")
	pf.String("registry-url", "", "NuGet flat-container base URL")
	pf.String("package-id", "", "Registry package that supplies the SDK version")
	pf.Int("timeout-ms", 0, "Registry request timeout in milliseconds")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("strategy", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return sdk.Names(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("kinds", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return descriptor.KindNames(), cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewConvertCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewResolveCommand())
	rootCmd.AddCommand(commands.NewCacheCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// newLogger writes text logs to w. Verbose enables debug records; otherwise
// only warnings and errors are shown.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for sdkproj.

To load completions:

Bash:
  $ source <(sdkproj completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ sdkproj completion bash > /etc/bash_completion.d/sdkproj
  # macOS:
  $ sdkproj completion bash > $(brew --prefix)/etc/bash_completion.d/sdkproj

Zsh:
  $ sdkproj completion zsh > "${fpath[1]}/_sdkproj"

Fish:
  $ sdkproj completion fish > ~/.config/fish/completions/sdkproj.fish

PowerShell:
  PS> sdkproj completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
