package cli

import (
	"github.com/spf13/cobra"

	"keepersecurity.com/ksm-proxy-users/internal/output"
	"keepersecurity.com/ksm-proxy-users/proxy"
)

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List teams of the proxy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		teams, err := proxy.LoadTeamDirectory(cmd.Context(), newDirectory(cfg, logger))
		if err != nil {
			return directoryError(err)
		}
		table := output.NewTable(printer.Out(), []string{"team_id", "team_name", "team_alias"})
		for _, t := range teams.Teams() {
			table.AddRow([]string{t.Id, t.Name, t.Alias})
		}
		return table.Render()
	},
}
