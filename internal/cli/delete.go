package cli

import (
	"io"

	"github.com/spf13/cobra"

	"keepersecurity.com/ksm-proxy-users/internal/output"
	"keepersecurity.com/ksm-proxy-users/proxy"
)

var deleteCsvFile string

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the users listed in a CSV file",
	Long: `Delete every user of a CSV file with the header email.

Deleted users are written to user_del_result.csv, failures to user_del_error.csv.`,
	Args: cobra.NoArgs,
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().StringVar(&deleteCsvFile, "csv-file", "user_dellist.csv", "CSV file with the emails to delete")
}

func runDelete(cmd *cobra.Command, args []string) error {
	emails, err := proxy.ReadEmailsFile(deleteCsvFile)
	if err != nil {
		return output.SetupError("cannot read "+deleteCsvFile, err, "Pass the emails file with --csv-file")
	}
	printer.Info("Found %d users in %s", len(emails), deleteCsvFile)

	if cfg.DryRun {
		printer.Header("Users to delete")
		if len(emails) == 0 {
			printer.Print("  (none)")
		}
		for _, email := range emails {
			printer.Change("-", "%s", email)
		}
		return nil
	}

	directory := newDirectory(cfg, logger)
	provisioner := proxy.NewProvisioner(directory, proxy.NewTeamDirectory(nil), logger)
	deleted, failed := provisioner.DeleteUsers(cmd.Context(), emails, func(dr *proxy.DeletionRecord, ue *proxy.UnitError) {
		if dr != nil {
			printer.Success("Deleted %s (%s)", dr.Email, dr.UserId)
		}
		if ue != nil {
			printer.Error("%s: %s", ue.Email, ue.Reason)
		}
	})

	printer.Header("Summary")
	printer.Print("Deleted: %d", len(deleted))
	printer.Print("Failed:  %d", len(failed))

	if err = writeReport(proxy.DeletionReportFile, func(w io.Writer) error {
		return proxy.WriteDeletionReport(w, deleted)
	}); err != nil {
		return err
	}
	if len(failed) > 0 {
		return writeReport(proxy.DeletionErrorFile, func(w io.Writer) error {
			return proxy.WriteDeletionErrors(w, failed)
		})
	}
	return nil
}
