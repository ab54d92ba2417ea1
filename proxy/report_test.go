package proxy

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSyncReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSyncReport(&buf, []*SyncResult{
		{Action: ActionAdded, Email: "a@x.com", UserId: "u-1", Role: "internal_user", TeamName: "eng", ApiKey: "sk-1", Success: true},
		{Action: ActionDeleted, Email: "b@x.com", UserId: "u-2", Role: "internal_user", Error: "Forbidden, really"},
	}))
	assert.Equal(t, "action,email,user_id,role,team_name,api_keys,status,error_reason\n"+
		"ADDED,a@x.com,u-1,internal_user,eng,sk-1,SUCCESS,\n"+
		"DELETED,b@x.com,u-2,internal_user,,,FAILED,\"Forbidden, really\"\n", buf.String())
}

func TestWriteCreationReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCreationReport(&buf, []*CreationRecord{
		{Email: "a@x.com", Role: "user", UserId: "u-1", TeamName: "eng", Models: []string{"gpt-4o", "claude"}, ApiKey: "sk-1", InvitationUrl: "http://p/ui"},
		{Email: "b@x.com", Role: "user", UserId: "u-2"},
	}))
	assert.Equal(t, "email,role,user_id,team_name,models,api_keys,invitation_url\n"+
		"a@x.com,user,u-1,eng,gpt-4o;claude,sk-1,http://p/ui\n"+
		"b@x.com,user,u-2,,All proxy models,,\n", buf.String())
}

func TestWriteErrorReports(t *testing.T) {
	var failures = []*UnitError{{Email: "a@x.com", Role: "user", UserId: "u-1", Reason: ReasonUserExists}}

	var buf bytes.Buffer
	require.NoError(t, WriteCreationErrors(&buf, failures))
	assert.Equal(t, "email,role,error_reason\na@x.com,user,User already exists in the system\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteDeletionErrors(&buf, failures))
	assert.Equal(t, "email,user_id,error_reason\na@x.com,u-1,User already exists in the system\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteDeletionReport(&buf, []*DeletionRecord{{Email: "a@x.com", UserId: "u-1"}}))
	assert.Equal(t, "email,user_id,status\na@x.com,u-1,Deleted\n", buf.String())
}

func TestWriteCsvFile_Overwrites(t *testing.T) {
	var fileName = filepath.Join(t.TempDir(), SyncReportFile)
	require.NoError(t, os.WriteFile(fileName, []byte("old content that is longer\n"), 0o600))

	require.NoError(t, WriteCsvFile(fileName, func(w io.Writer) error {
		return WriteSyncReport(w, nil)
	}))
	var data, err = os.ReadFile(fileName)
	require.NoError(t, err)
	assert.Equal(t, "action,email,user_id,role,team_name,api_keys,status,error_reason\n", string(data))
}
