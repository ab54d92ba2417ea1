package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keepersecurity.com/ksm-proxy-users/internal/output"
	"keepersecurity.com/ksm-proxy-users/proxy"
)

func TestDeleteCmd(t *testing.T) {
	server := setupCliTest(t)
	userId := server.AddUser("a@x.com", "internal_user")
	server.AddUser("keep@x.com", "internal_user")
	writeFile(t, "user_dellist.csv", "email\na@x.com\nmissing@x.com\n")

	code, stdout, _ := runCli(t, server, "delete")
	require.Equal(t, output.ExitSuccess, code)
	assert.Contains(t, stdout, "Deleted: 1")

	assert.Equal(t, []string{"keep@x.com"}, server.Emails())
	assert.Equal(t, "email,user_id,status\na@x.com,"+userId+",Deleted\n", readFile(t, proxy.DeletionReportFile))
	assert.Equal(t, "email,user_id,error_reason\nmissing@x.com,,User not found in the system\n", readFile(t, proxy.DeletionErrorFile))
}

func TestDeleteCmd_DryRun(t *testing.T) {
	server := setupCliTest(t)
	server.AddUser("a@x.com", "internal_user")
	writeFile(t, "user_dellist.csv", "email\na@x.com\n")

	code, stdout, _ := runCli(t, server, "delete", "--dry-run")
	require.Equal(t, output.ExitSuccess, code)
	assert.Contains(t, stdout, "- a@x.com")
	assert.NotNil(t, server.User("a@x.com"))
}
