package cli

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keepersecurity.com/ksm-proxy-users/internal/fakeproxy"
	"keepersecurity.com/ksm-proxy-users/internal/output"
	"keepersecurity.com/ksm-proxy-users/proxy"
)

func setupSyncServer(t *testing.T) *fakeproxy.Server {
	t.Helper()
	server := setupCliTest(t)
	engId := server.AddTeam("engineering", "eng")
	server.AddTeam("research", "")
	server.AddUser("keep@x.com", "internal_user", engId)
	server.AddUser("role@x.com", "proxy_admin")
	server.AddUser("gone@x.com", "internal_user")
	writeFile(t, "user_list.csv", "email,role,team_name,key_name\n"+
		"keep@x.com,internal_user,eng,\n"+
		"role@x.com,internal_user,,\n"+
		"new@x.com,,research,laptop\n")
	return server
}

func TestSyncCmd_DryRun(t *testing.T) {
	server := setupSyncServer(t)

	code, stdout, _ := runCli(t, server, "sync", "--dry-run")
	require.Equal(t, output.ExitSuccess, code)

	assert.Contains(t, stdout, "+ new@x.com (proxy_admin) teams: research")
	assert.Contains(t, stdout, "- gone@x.com (internal_user)")
	assert.Contains(t, stdout, "~ role@x.com: role proxy_admin -> internal_user")
	assert.Contains(t, stdout, "Unchanged users: 1")
	assert.Empty(t, server.Calls("POST", ""))
	_, err := os.Stat(proxy.SyncReportFile)
	assert.True(t, os.IsNotExist(err))
}

func TestSyncCmd_Apply(t *testing.T) {
	server := setupSyncServer(t)

	code, stdout, _ := runCli(t, server, "sync")
	require.Equal(t, output.ExitSuccess, code)

	assert.ElementsMatch(t, []string{"keep@x.com", "role@x.com", "new@x.com"}, server.Emails())
	assert.Equal(t, "internal_user", server.User("role@x.com")["user_role"])
	newUser := server.User("new@x.com")
	require.NotNil(t, newUser)
	assert.Equal(t, "laptop", server.KeyAlias("sk-"+newUser["user_id"].(string)))
	assert.Contains(t, stdout, "Added:     1 succeeded, 0 failed")

	report := readFile(t, proxy.SyncReportFile)
	lines := strings.Split(strings.TrimSpace(report), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "action,email,user_id,role,team_name,api_keys,status,error_reason", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "ADDED,new@x.com,"))
	assert.True(t, strings.HasPrefix(lines[2], "DELETED,gone@x.com,"))
	assert.True(t, strings.HasPrefix(lines[3], "UPDATED,role@x.com,"))
	assert.True(t, strings.HasPrefix(lines[4], "UNCHANGED,keep@x.com,"))
}

func TestSyncCmd_NoDelete(t *testing.T) {
	server := setupSyncServer(t)

	code, stdout, _ := runCli(t, server, "sync", "--no-delete", "--no-update")
	require.Equal(t, output.ExitSuccess, code)

	assert.NotNil(t, server.User("gone@x.com"))
	assert.Equal(t, "proxy_admin", server.User("role@x.com")["user_role"])
	assert.Contains(t, stdout, "Users to delete: 1 (skipped: --no-delete)")
	assert.Contains(t, stdout, "Deleted:   skipped")
}

func TestSyncCmd_MissingCsv(t *testing.T) {
	server := setupCliTest(t)

	code, _, stderr := runCli(t, server, "sync", "--csv-file", "missing.csv")
	assert.Equal(t, output.ExitSetup, code)
	assert.Contains(t, stderr, "cannot read missing.csv")
	assert.Empty(t, server.Calls("GET", ""))
}

func TestSyncCmd_InitialFetchFails(t *testing.T) {
	server := setupSyncServer(t)
	server.Fail("GET", "/user/list", 503)

	code, _, stderr := runCli(t, server, "sync")
	assert.Equal(t, output.ExitDirectory, code)
	assert.Contains(t, stderr, "cannot read users and teams from the proxy")
	assert.Empty(t, server.Calls("POST", ""))
}

func TestSyncCmd_PerUserFailureStillSucceeds(t *testing.T) {
	server := setupSyncServer(t)
	server.Fail("POST", "/user/delete", 403)

	code, stdout, stderr := runCli(t, server, "sync")
	assert.Equal(t, output.ExitSuccess, code)
	assert.Contains(t, stdout, "Deleted:   0 succeeded, 1 failed")
	assert.Contains(t, stderr, "Deleted gone@x.com failed")
	assert.Contains(t, readFile(t, proxy.SyncReportFile), "DELETED,gone@x.com")
}

func TestSyncCmd_LogsCarryComponent(t *testing.T) {
	server := setupSyncServer(t)

	code, _, stderr := runCli(t, server, "sync", "--dry-run")
	require.Equal(t, output.ExitSuccess, code)
	assert.Contains(t, stderr, "directory loaded")
	assert.Contains(t, stderr, "component=")
	assert.Contains(t, stderr, "sync")
}
