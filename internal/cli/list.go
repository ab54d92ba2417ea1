package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"keepersecurity.com/ksm-proxy-users/internal/output"
	"keepersecurity.com/ksm-proxy-users/proxy"
)

var (
	listRole      string
	listEmailLike string
	listColumns   string
	listShowAll   bool
	listTable     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List users of the proxy",
	Long: `List users of the proxy as tab separated values.

Only users with an email and an internal role are listed unless --show-all is set.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listRole, "role", "", "only users with this role")
	listCmd.Flags().StringVar(&listEmailLike, "email-like", "", "only users whose email contains this text, ignoring case")
	listCmd.Flags().StringVar(&listColumns, "columns", strings.Join(proxy.DefaultListColumns, ","), "comma separated user attributes to print")
	listCmd.Flags().BoolVar(&listShowAll, "show-all", false, "include users without email or with an external role")
	listCmd.Flags().BoolVar(&listTable, "table", false, "print an aligned table")
}

func runList(cmd *cobra.Command, args []string) error {
	filter := proxy.ListFilter{ShowAll: listShowAll, EmailLike: listEmailLike}
	if listRole != "" {
		role, err := proxy.NormalizeRole(listRole)
		if err != nil {
			return output.SetupError("invalid --role", err, "")
		}
		filter.Role = role
	}

	users, err := newDirectory(cfg, logger).ListUsers(cmd.Context())
	if err != nil {
		return directoryError(err)
	}
	users = proxy.FilterUsers(users, filter)
	columns := proxy.ParseColumns(listColumns)

	if listTable {
		table := output.NewTable(printer.Out(), columns)
		for _, u := range users {
			table.AddRow(proxy.UserRow(u, columns))
		}
		if err = table.Render(); err != nil {
			return err
		}
	} else {
		w := printer.Out()
		_, _ = fmt.Fprintln(w, strings.Join(columns, "\t"))
		for _, u := range users {
			_, _ = fmt.Fprintln(w, strings.Join(proxy.UserRow(u, columns), "\t"))
		}
	}
	logger.Debug().Int("users", len(users)).Msg("users listed")
	return nil
}
