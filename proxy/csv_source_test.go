package proxy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDesiredUsers(t *testing.T) {
	var data = "\ufeffemail, role ,team_name,key_name\n" +
		"a@x.com,internal_user,eng research,laptop\n" +
		"b@x.com,, ops ,\n" +
		",internal_user,eng,\n" +
		"c@x.com\n"
	var users, err = ReadDesiredUsers(strings.NewReader(data), "proxy_admin")
	require.NoError(t, err)
	assert.Equal(t, []*DesiredUser{
		{Email: "a@x.com", Role: "internal_user", TeamName: "eng research", KeyName: "laptop"},
		{Email: "b@x.com", Role: "proxy_admin", TeamName: "ops"},
		{Email: "c@x.com", Role: "proxy_admin"},
	}, users)
}

func TestReadDesiredUsers_Empty(t *testing.T) {
	var users, err = ReadDesiredUsers(strings.NewReader(""), "proxy_admin")
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestReadEmails(t *testing.T) {
	var emails, err = ReadEmails(strings.NewReader("email\na@x.com\n\nb@x.com\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, emails)
}

func TestCsvSource(t *testing.T) {
	var fileName = filepath.Join(t.TempDir(), "user_list.csv")
	require.NoError(t, os.WriteFile(fileName, []byte("email,role\na@x.com,\n"), 0o600))

	var source = NewCsvSource(fileName, "internal_user")
	require.NoError(t, source.Populate(context.Background()))
	var users []*DesiredUser
	source.Users(func(du *DesiredUser) { users = append(users, du) })
	assert.Equal(t, []*DesiredUser{{Email: "a@x.com", Role: "internal_user"}}, users)
}

func TestCsvSource_MissingFile(t *testing.T) {
	var source = NewCsvSource(filepath.Join(t.TempDir(), "missing.csv"), "internal_user")
	var err = source.Populate(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStaticSource(t *testing.T) {
	var source = NewStaticSource([]*DesiredUser{{Email: "a@x.com", Role: "user"}})
	require.NoError(t, source.Populate(context.Background()))
	var count int
	source.Users(func(*DesiredUser) { count++ })
	assert.Equal(t, 1, count)
}
