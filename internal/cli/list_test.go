package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keepersecurity.com/ksm-proxy-users/internal/output"
)

func TestListCmd_TabSeparated(t *testing.T) {
	server := setupCliTest(t)
	teamId := server.AddTeam("engineering", "")
	aliceId := server.AddUser("alice@example.com", "internal_user", teamId)
	server.AddUser("bob@example.com", "proxy_admin")
	server.AddUser("svc@example.com", "team")

	code, stdout, _ := runCli(t, server, "list", "--columns", "user_id,user_email,teams,hashed_password")
	require.Equal(t, output.ExitSuccess, code)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "user_id\tuser_email\tteams", lines[0])
	assert.Equal(t, aliceId+"\talice@example.com\t[\""+teamId+"\"]", lines[1])
	assert.NotContains(t, stdout, "secret-hash")
	assert.NotContains(t, stdout, "svc@example.com")
}

func TestListCmd_Filters(t *testing.T) {
	server := setupCliTest(t)
	server.AddUser("Alice@Example.com", "internal_user")
	server.AddUser("bob@example.com", "proxy_admin")
	server.AddUser("svc@example.com", "team")

	code, stdout, _ := runCli(t, server, "list", "--email-like", "ALICE", "--columns", "user_email")
	require.Equal(t, output.ExitSuccess, code)
	assert.Equal(t, "user_email\nAlice@Example.com\n", stdout)

	resetCli()
	code, stdout, _ = runCli(t, server, "list", "--role", "Proxy_Admin", "--columns", "user_email")
	require.Equal(t, output.ExitSuccess, code)
	assert.Equal(t, "user_email\nbob@example.com\n", stdout)

	resetCli()
	code, stdout, _ = runCli(t, server, "list", "--show-all", "--columns", "user_email", "--table")
	require.Equal(t, output.ExitSuccess, code)
	assert.Contains(t, stdout, "svc@example.com")
}

func TestListCmd_InvalidRole(t *testing.T) {
	server := setupCliTest(t)

	code, _, stderr := runCli(t, server, "list", "--role", "owner")
	assert.Equal(t, output.ExitSetup, code)
	assert.Contains(t, stderr, "invalid role 'owner'")
	assert.Empty(t, server.Calls("GET", "/user/list"))
}
