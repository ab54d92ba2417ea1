package cli

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"keepersecurity.com/ksm-proxy-users/internal/output"
	"keepersecurity.com/ksm-proxy-users/proxy"
)

var (
	addCsvFile        string
	addUserRole       string
	addUpdateExisting bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Create the users listed in a CSV file",
	Long: `Create every user of a CSV file with the header email,role,team_name,key_name.

Users that already exist are skipped and reported. Created users are written to
user_reg_result.csv together with their virtual key and invitation link, failures
to user_reg_error.csv.`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addCsvFile, "csv-file", "user_addlist.csv", "CSV file with the users to create")
	addCmd.Flags().StringVar(&addUserRole, "user-role", proxy.DefaultUserRole, "role of users with a blank role column")
	addCmd.Flags().BoolVar(&addUpdateExisting, "update-existing", false, "write the result report for users that already exist instead of creating users")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	directory := newDirectory(cfg, logger)

	teams, err := proxy.LoadTeamDirectory(ctx, directory)
	if err != nil {
		logger.Warn().Err(err).Msg("cannot load teams")
		printer.Warning("Teams are unavailable, users are created without a team")
		teams = proxy.NewTeamDirectory(nil)
	}
	provisioner := proxy.NewProvisioner(directory, teams, logger)

	if addUpdateExisting {
		return reportExistingUsers(cmd, provisioner)
	}

	file, err := os.Open(addCsvFile)
	if err != nil {
		return output.SetupError("cannot read "+addCsvFile, err, "Pass the users file with --csv-file")
	}
	users, err := proxy.ReadDesiredUsers(file, addUserRole)
	_ = file.Close()
	if err != nil {
		return output.SetupError("cannot read "+addCsvFile, err, "")
	}
	printer.Info("Found %d users in %s", len(users), addCsvFile)

	if cfg.DryRun {
		printer.Header("Users to create")
		if len(users) == 0 {
			printer.Print("  (none)")
		}
		for _, du := range users {
			printer.Change("+", "%s (%s)%s", du.Email, du.Role, teamSuffix(du.TeamName))
		}
		return nil
	}

	created, failed, err := provisioner.CreateUsers(ctx, users, func(cr *proxy.CreationRecord, ue *proxy.UnitError) {
		if cr != nil {
			printer.Success("Created %s (%s)", cr.Email, cr.UserId)
		}
		if ue != nil {
			printer.Error("%s: %s", ue.Email, ue.Reason)
		}
	})
	if err != nil {
		if errors.Is(err, proxy.ErrSnapshot) {
			return directoryError(err)
		}
		return err
	}

	printer.Header("Summary")
	printer.Print("Created: %d", len(created))
	printer.Print("Failed:  %d", len(failed))

	if err = writeReport(proxy.CreationReportFile, func(w io.Writer) error {
		return proxy.WriteCreationReport(w, created)
	}); err != nil {
		return err
	}
	if len(failed) > 0 {
		return writeReport(proxy.CreationErrorFile, func(w io.Writer) error {
			return proxy.WriteCreationErrors(w, failed)
		})
	}
	return nil
}

func reportExistingUsers(cmd *cobra.Command, provisioner *proxy.Provisioner) error {
	records, err := provisioner.ExistingUserRecords(cmd.Context())
	if err != nil {
		return directoryError(err)
	}
	printer.Info("Found %d existing users", len(records))
	if cfg.DryRun {
		return nil
	}
	return writeReport(proxy.CreationReportFile, func(w io.Writer) error {
		return proxy.WriteCreationReport(w, records)
	})
}

func teamSuffix(teamName string) string {
	if teamName = proxy.NormalizeTeams(teamName); len(teamName) > 0 {
		return " teams: " + teamName
	}
	return ""
}
