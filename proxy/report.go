package proxy

import (
	"encoding/csv"
	"io"
	"os"
	"strings"
)

const (
	SyncReportFile     = "user_sync_result.csv"
	CreationReportFile = "user_reg_result.csv"
	CreationErrorFile  = "user_reg_error.csv"
	DeletionReportFile = "user_del_result.csv"
	DeletionErrorFile  = "user_del_error.csv"
	allProxyModels     = "All proxy models"
	statusSuccess      = "SUCCESS"
	statusFailed       = "FAILED"
	statusDeleted      = "Deleted"
	keyNotRetrievable  = "Created during registration (not retrievable)"
	keyNotFound        = "No API key found"
)

// CreationRecord is one row of the user creation report.
type CreationRecord struct {
	Email         string
	Role          string
	UserId        string
	TeamName      string
	Models        []string
	ApiKey        string
	InvitationUrl string
}

// UnitError is a per-user failure written to an error report.
type UnitError struct {
	Email  string
	Role   string
	UserId string
	Reason string
}

type DeletionRecord struct {
	Email  string
	UserId string
}

// FormatModels renders the model list of a user. No models means access to every model.
func FormatModels(models []string) string {
	if len(models) == 0 {
		return allProxyModels
	}
	return strings.Join(models, ";")
}

// WriteCsvFile creates or truncates fileName and writes rows to it.
func WriteCsvFile(fileName string, write func(io.Writer) error) (err error) {
	var file *os.File
	if file, err = os.Create(fileName); err != nil {
		return
	}
	defer func() {
		if er1 := file.Close(); er1 != nil && err == nil {
			err = er1
		}
	}()
	err = write(file)
	return
}

func writeRows(w io.Writer, header []string, rows [][]string) error {
	var writer = csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	return writer.Error()
}

func WriteSyncReport(w io.Writer, results []*SyncResult) error {
	var rows [][]string
	for _, r := range results {
		var status = statusFailed
		if r.Success {
			status = statusSuccess
		}
		rows = append(rows, []string{
			string(r.Action), r.Email, r.UserId, r.Role, r.TeamName, r.ApiKey, status, r.Error,
		})
	}
	return writeRows(w, []string{"action", "email", "user_id", "role", "team_name", "api_keys", "status", "error_reason"}, rows)
}

func WriteCreationReport(w io.Writer, records []*CreationRecord) error {
	var rows [][]string
	for _, r := range records {
		rows = append(rows, []string{
			r.Email, r.Role, r.UserId, r.TeamName, FormatModels(r.Models), r.ApiKey, r.InvitationUrl,
		})
	}
	return writeRows(w, []string{"email", "role", "user_id", "team_name", "models", "api_keys", "invitation_url"}, rows)
}

func WriteCreationErrors(w io.Writer, failures []*UnitError) error {
	var rows [][]string
	for _, f := range failures {
		rows = append(rows, []string{f.Email, f.Role, f.Reason})
	}
	return writeRows(w, []string{"email", "role", "error_reason"}, rows)
}

func WriteDeletionReport(w io.Writer, records []*DeletionRecord) error {
	var rows [][]string
	for _, r := range records {
		rows = append(rows, []string{r.Email, r.UserId, statusDeleted})
	}
	return writeRows(w, []string{"email", "user_id", "status"}, rows)
}

func WriteDeletionErrors(w io.Writer, failures []*UnitError) error {
	var rows [][]string
	for _, f := range failures {
		rows = append(rows, []string{f.Email, f.UserId, f.Reason})
	}
	return writeRows(w, []string{"email", "user_id", "error_reason"}, rows)
}
