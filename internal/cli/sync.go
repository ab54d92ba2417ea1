package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"keepersecurity.com/ksm-proxy-users/internal/logging"
	"keepersecurity.com/ksm-proxy-users/internal/output"
	"keepersecurity.com/ksm-proxy-users/proxy"
)

var (
	syncCsvFile           string
	syncUserRole          string
	syncNoDelete          bool
	syncNoUpdate          bool
	syncGoogleCredentials string
	syncGoogleAdmin       string
	syncGoogleGroups      string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Make the proxy users match a CSV file",
	Long: `Compare the users of a CSV file (email,role,team_name,key_name) with the users
of the proxy, then create missing users, delete users that are not in the file and
update roles and team membership.

Team membership is changed in two steps so a user never drops out of all teams.
When the proxy does not apply a team change the user is deleted and created again
in its first team. An empty team_name leaves the teams of a user untouched.

The desired users can also come from Google Workspace groups (--google-credentials)
or from the user_list.csv attachment of a Keeper record (--ksm-config).`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncCsvFile, "csv-file", "user_list.csv", "CSV file with the desired users")
	syncCmd.Flags().StringVar(&syncUserRole, "user-role", proxy.DefaultUserRole, "role of users with a blank role column")
	syncCmd.Flags().BoolVar(&syncNoDelete, "no-delete", false, "never delete users")
	syncCmd.Flags().BoolVar(&syncNoUpdate, "no-update", false, "never update users")
	syncCmd.Flags().StringVar(&syncGoogleCredentials, "google-credentials", "", "Google service account JSON file; desired users are members of --google-groups")
	syncCmd.Flags().StringVar(&syncGoogleAdmin, "google-admin", "", "Google Workspace admin account impersonated by the service account")
	syncCmd.Flags().StringVar(&syncGoogleGroups, "google-groups", "", "comma separated Google groups whose members are synced")
}

// syncOptions merges flags with the settings of a Keeper record. Explicit flags win.
func syncOptions(cmd *cobra.Command) (role string, options proxy.SyncOptions) {
	role = syncUserRole
	options.NoDelete = syncNoDelete
	options.NoUpdate = syncNoUpdate
	if ksm := cfg.Ksm; ksm != nil {
		if !cmd.Flags().Changed("user-role") && ksm.DefaultRole != "" {
			role = ksm.DefaultRole
		}
		options.NoDelete = options.NoDelete || ksm.NoDelete
		options.NoUpdate = options.NoUpdate || ksm.NoUpdate
	}
	return
}

// desiredSource picks where the desired users come from: Google flags, an explicit
// CSV file, the Keeper record, then the default CSV file.
func desiredSource(cmd *cobra.Command, role string) (source proxy.IUserSource, description string, err error) {
	if syncGoogleCredentials != "" {
		var credentials []byte
		if credentials, err = os.ReadFile(syncGoogleCredentials); err != nil {
			err = output.SetupError("cannot read Google credentials", err, "")
			return
		}
		source = proxy.NewGoogleEndpoint(proxy.GoogleEndpointParameters{
			AdminAccount: syncGoogleAdmin,
			Credentials:  credentials,
			Groups:       proxy.ParseGroupList([]string{syncGoogleGroups}),
			DefaultRole:  role,
		})
		description = "Google Workspace groups " + syncGoogleGroups
		return
	}
	if !cmd.Flags().Changed("csv-file") {
		if cfg.Google != nil {
			var parameters = *cfg.Google
			parameters.DefaultRole = role
			source = proxy.NewGoogleEndpoint(parameters)
			description = "Google Workspace groups " + strings.Join(parameters.Groups, ", ")
			return
		}
		if cfg.Ksm != nil && cfg.Ksm.DesiredUsers != nil {
			source = proxy.NewStaticSource(cfg.Ksm.DesiredUsers)
			description = "Keeper record attachment"
			return
		}
	}
	if _, err = os.Stat(syncCsvFile); err != nil {
		err = output.SetupError("cannot read "+syncCsvFile, err, "Pass the desired users file with --csv-file")
		return
	}
	source = proxy.NewCsvSource(syncCsvFile, role)
	description = syncCsvFile
	return
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	role, options := syncOptions(cmd)
	source, description, err := desiredSource(cmd, role)
	if err != nil {
		return err
	}
	options.OnResult = printSyncResult

	sync := proxy.NewProxySync(source, newDirectory(cfg, logger), options, logging.WithComponent(logger, "sync"))
	plan, err := sync.Plan(ctx)
	if err != nil {
		if errors.Is(err, proxy.ErrSnapshot) {
			return directoryError(err)
		}
		return output.SetupError("cannot read desired users from "+description, err, "")
	}
	printer.Info("Desired users from %s", description)
	printPlan(plan, options)

	if cfg.DryRun {
		printer.Info("Dry run, nothing was changed")
		return nil
	}

	stat, err := sync.Sync(ctx)
	if err != nil {
		return err
	}
	printSyncSummary(stat, options)
	return writeReport(proxy.SyncReportFile, func(w io.Writer) error {
		return proxy.WriteSyncReport(w, stat.Results)
	})
}

func printPlan(plan *proxy.SyncPlan, options proxy.SyncOptions) {
	printer.Header("Sync plan")

	printer.Print("Users to add: %d", len(plan.ToAdd))
	if len(plan.ToAdd) == 0 {
		printer.Print("  (none)")
	}
	for _, du := range plan.ToAdd {
		printer.Change("+", "%s (%s)%s", du.Email, du.Role, teamSuffix(du.TeamName))
	}

	var suffix string
	if options.NoDelete {
		suffix = " (skipped: --no-delete)"
	}
	printer.Print("Users to delete: %d%s", len(plan.ToDelete), suffix)
	if len(plan.ToDelete) == 0 {
		printer.Print("  (none)")
	}
	for _, pe := range plan.ToDelete {
		printer.Change("-", "%s (%s)%s", pe.Email, pe.Role, teamSuffix(pe.TeamName))
	}

	suffix = ""
	if options.NoUpdate {
		suffix = " (skipped: --no-update)"
	}
	printer.Print("Users to update: %d%s", len(plan.ToUpdate), suffix)
	if len(plan.ToUpdate) == 0 {
		printer.Print("  (none)")
	}
	for _, upd := range plan.ToUpdate {
		var changes []string
		if upd.RoleChanged {
			changes = append(changes, "role "+upd.CurrentRole+" -> "+upd.NewRole)
		}
		if upd.TeamChanged {
			changes = append(changes, "teams "+displayTeams(upd.CurrentTeams)+" -> "+displayTeams(upd.NewTeams))
		}
		printer.Change("~", "%s: %s", upd.Email, strings.Join(changes, ", "))
	}

	printer.Print("Unchanged users: %d", len(plan.Unchanged))
}

func displayTeams(teams string) string {
	if teams == "" {
		return "(none)"
	}
	return "'" + teams + "'"
}

func printSyncResult(r *proxy.SyncResult) {
	var verb string
	switch r.Action {
	case proxy.ActionAdded:
		verb = "Added"
	case proxy.ActionDeleted:
		verb = "Deleted"
	case proxy.ActionUpdated:
		verb = "Updated"
	default:
		return
	}
	if r.Success {
		printer.Success("%s %s", verb, r.Email)
	} else {
		printer.Error("%s %s failed: %s", verb, r.Email, r.Error)
	}
}

func printSyncSummary(stat *proxy.SyncStat, options proxy.SyncOptions) {
	printer.Header("Summary")
	printer.Print("Added:     %d succeeded, %d failed", stat.Count(proxy.ActionAdded, true), stat.Count(proxy.ActionAdded, false))
	if options.NoDelete {
		printer.Print("Deleted:   skipped")
	} else {
		printer.Print("Deleted:   %d succeeded, %d failed", stat.Count(proxy.ActionDeleted, true), stat.Count(proxy.ActionDeleted, false))
	}
	if options.NoUpdate {
		printer.Print("Updated:   skipped")
	} else {
		printer.Print("Updated:   %d succeeded, %d failed", stat.Count(proxy.ActionUpdated, true), stat.Count(proxy.ActionUpdated, false))
	}
	printer.Print("Unchanged: %d", stat.Count(proxy.ActionUnchanged, true))
}
