package proxy

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

type csvSource struct {
	fileName    string
	defaultRole string
	users       []*DesiredUser
}

// NewCsvSource creates an IUserSource backed by a CSV file with the header
// email,role,team_name,key_name. A blank role falls back to defaultRole.
func NewCsvSource(fileName string, defaultRole string) IUserSource {
	return &csvSource{
		fileName:    fileName,
		defaultRole: defaultRole,
	}
}

func (cs *csvSource) Users(cb func(*DesiredUser)) {
	for _, u := range cs.users {
		cb(u)
	}
}

func (cs *csvSource) Populate(_ context.Context) (err error) {
	if len(cs.fileName) == 0 {
		return
	}
	var file *os.File
	if file, err = os.Open(cs.fileName); err != nil {
		return
	}
	defer func() { _ = file.Close() }()
	cs.users, err = ReadDesiredUsers(file, cs.defaultRole)
	return
}

// NewStaticSource wraps already loaded users, e.g. a CSV attachment of a KSM record.
func NewStaticSource(users []*DesiredUser) IUserSource {
	return &csvSource{users: users}
}

// readRecords reads a CSV document into one map per row keyed by the trimmed header names.
func readRecords(r io.Reader) (rows []map[string]string, err error) {
	var reader = csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var header []string
	if header, err = reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		return
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}
	for {
		var record []string
		if record, err = reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			return
		}
		var row = make(map[string]string)
		for i, value := range record {
			if i < len(header) {
				row[header[i]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, row)
	}
}

// ReadDesiredUsers parses the desired state CSV. Rows without email are skipped.
func ReadDesiredUsers(r io.Reader, defaultRole string) (users []*DesiredUser, err error) {
	var rows []map[string]string
	if rows, err = readRecords(r); err != nil {
		err = fmt.Errorf("parse users CSV: %w", err)
		return
	}
	for _, row := range rows {
		var email = row["email"]
		if len(email) == 0 {
			continue
		}
		var role = row["role"]
		if len(role) == 0 {
			role = defaultRole
		}
		users = append(users, &DesiredUser{
			Email:    email,
			Role:     role,
			TeamName: row["team_name"],
			KeyName:  row["key_name"],
		})
	}
	return
}

// ReadEmails parses a CSV with an email column, skipping rows without email.
func ReadEmails(r io.Reader) (emails []string, err error) {
	var rows []map[string]string
	if rows, err = readRecords(r); err != nil {
		err = fmt.Errorf("parse emails CSV: %w", err)
		return
	}
	for _, row := range rows {
		if email := row["email"]; len(email) > 0 {
			emails = append(emails, email)
		}
	}
	return
}

// ReadEmailsFile reads ReadEmails input from a file.
func ReadEmailsFile(fileName string) (emails []string, err error) {
	var file *os.File
	if file, err = os.Open(fileName); err != nil {
		return
	}
	defer func() { _ = file.Close() }()
	emails, err = ReadEmails(file)
	return
}
