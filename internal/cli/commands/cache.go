package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sdkproj/internal/cli/output"
	"github.com/leapstack-labs/sdkproj/internal/version"
)

// CacheEntryOutput is the JSON form of one version cache row.
type CacheEntryOutput struct {
	PackageID     string    `json:"package_id"`
	CachedVersion string    `json:"cached_version,omitempty"`
	LastFetch     time.Time `json:"last_fetch"`
	Fresh         bool      `json:"fresh"`
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or reset the registry version cache",
	}
	cmd.AddCommand(newCacheShowCommand(), newCacheResetCommand())
	return cmd
}

func newCacheShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List cached registry versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := cc.Store.ListVersionCache(cmd.Context())
			if err != nil {
				return err
			}

			now := time.Now()
			rows := make([]CacheEntryOutput, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, CacheEntryOutput{
					PackageID:     e.PackageID,
					CachedVersion: e.CachedVersion,
					LastFetch:     e.LastFetch(),
					Fresh:         e.FreshAt(now, version.ThrottleWindow),
				})
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(rows)
			}

			r.Header(1, "Version cache")
			if len(rows) == 0 {
				r.Muted("Cache is empty")
				return nil
			}
			table := make([][]string, 0, len(rows))
			for _, row := range rows {
				v := row.CachedVersion
				if v == "" {
					v = "-"
				}
				fresh := "stale"
				if row.Fresh {
					fresh = "fresh"
				}
				table = append(table, []string{row.PackageID, v, row.LastFetch.Format(time.RFC3339), fresh})
			}
			r.Table([]string{"Package", "Version", "Last fetch", "Status"}, table)
			return nil
		},
	}
}

func newCacheResetCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "reset [package-id]",
		Short: "Forget cached versions so the next run queries the registry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			pkg := cc.Cfg.Registry.PackageID
			if len(args) == 1 {
				pkg = args[0]
			}
			if all {
				pkg = ""
			}

			if err := cc.Store.ResetVersionCache(cmd.Context(), pkg); err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]any{"reset": true, "package_id": pkg, "all": all})
			}
			if all {
				r.Success("Version cache cleared")
			} else {
				r.Success("Version cache cleared for " + pkg)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clear every package")
	return cmd
}
