package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sdkproj/internal/cli/output"
)

// HistoryEntryOutput is the JSON form of one recorded conversion.
type HistoryEntryOutput struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Mode    string    `json:"mode"`
	Changed bool      `json:"changed"`
	Skipped bool      `json:"skipped"`
	Reason  string    `json:"reason,omitempty"`
	Sdk     string    `json:"sdk,omitempty"`
	At      time.Time `json:"at"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			items, err := cc.Store.ListConversions(cmd.Context(), limit)
			if err != nil {
				return err
			}

			entries := make([]HistoryEntryOutput, 0, len(items))
			for _, c := range items {
				entries = append(entries, HistoryEntryOutput{
					ID: c.ID, Path: c.Path, Mode: c.Mode, Changed: c.Changed,
					Skipped: c.Skipped, Reason: c.Reason, Sdk: c.Sdk, At: c.At,
				})
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(entries)
			}

			r.Header(1, "History ("+strconv.Itoa(len(entries))+")")
			if len(entries) == 0 {
				r.Muted("No conversions recorded")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				result := "rewritten"
				if e.Skipped {
					result = e.Reason
				}
				rows = append(rows, []string{
					e.At.Local().Format("2006-01-02 15:04:05"),
					displayPath(cc.Cfg.ProjectDir, e.Path),
					e.Mode,
					result,
					e.Sdk,
				})
			}
			r.Table([]string{"When", "Path", "Mode", "Result", "Sdk"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	return cmd
}
