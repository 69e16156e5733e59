package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sdkproj/internal/cli/output"
)

// ResolveOutput is the JSON document printed by resolve.
type ResolveOutput struct {
	Identifier string `json:"identifier"`
	Strategy   string `json:"strategy"`
	State      string `json:"state,omitempty"`
	PackageID  string `json:"package_id,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the SDK identifier that conversions would stamp",
		Long: `Resolve the SDK identifier using the configured strategy.

With the void strategy the registry is consulted at most once a day; the
result is cached in the state database. Any registry failure falls back to
the built-in default version.`,
		Example: `  sdkproj resolve
  sdkproj resolve --refresh
  sdkproj resolve --strategy custom --custom-sdk My.Sdk/1.0.0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			if refresh {
				if err := cc.Store.ResetVersionCache(ctx, cc.Cfg.Registry.PackageID); err != nil {
					return err
				}
			}

			strategy, resolver, err := cc.NewStrategy()
			if err != nil {
				return err
			}
			id, err := strategy.Identifier(ctx)
			if err != nil {
				return err
			}

			doc := ResolveOutput{Identifier: id, Strategy: strategy.Name()}
			if resolver != nil {
				doc.State = resolver.State().String()
				doc.PackageID = cc.Cfg.Registry.PackageID
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(doc)
			}

			r.Header(1, "SDK")
			r.StatusLine(id, output.StatusSuccess, "")
			r.Muted("strategy: " + doc.Strategy)
			if doc.State != "" {
				r.Muted("source: " + doc.State + " (" + doc.PackageID + ")")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore the daily throttle and query the registry")
	return cmd
}
