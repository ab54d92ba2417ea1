package ksm_proxy_users

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keepersecurity.com/ksm-proxy-users/internal/fakeproxy"
	"keepersecurity.com/ksm-proxy-users/proxy"
)

func stubParameters(t *testing.T, pp *proxy.ProxyParameters, err error) {
	t.Helper()
	var saved = loadProxyParameters
	t.Cleanup(func() { loadProxyParameters = saved })
	loadProxyParameters = func(configBase64 string, recordUid string) (*proxy.ProxyParameters, *proxy.GoogleEndpointParameters, error) {
		assert.Equal(t, "eyJ9", configBase64)
		assert.Equal(t, "record-uid", recordUid)
		return pp, nil, err
	}
	t.Setenv(ksmConfigName, "eyJ9")
	t.Setenv(ksmRecordUid, "record-uid")
}

func TestPrintStatistics(t *testing.T) {
	var buf bytes.Buffer
	printStatistics(&buf, &proxy.SyncStat{Results: []*proxy.SyncResult{
		{Action: proxy.ActionAdded, Email: "a@x.com", Success: true},
		{Action: proxy.ActionDeleted, Email: "b@x.com", Error: "Forbidden"},
		{Action: proxy.ActionUnchanged, Email: "c@x.com", Success: true},
	}})
	assert.Equal(t, "User Added:\n\ta@x.com\nUser Delete Failure:\n\tb@x.com: Forbidden\nUnchanged: 1\n", buf.String())

	buf.Reset()
	printStatistics(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestRunProxySync_MissingConfig(t *testing.T) {
	t.Setenv(ksmConfigName, "")

	var _, err = runProxySync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ksmConfigName)
}

func TestRunProxySync_FromRecord(t *testing.T) {
	var server = fakeproxy.New(t)
	server.AddUser("gone@x.com", "internal_user")
	stubParameters(t, &proxy.ProxyParameters{
		BaseUrl:      server.URL,
		MasterKey:    fakeproxy.MasterKey,
		NoDelete:     true,
		DesiredUsers: []*proxy.DesiredUser{{Email: "a@x.com", Role: "internal_user"}},
	}, nil)

	var syncStat, err = runProxySync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, syncStat.Count(proxy.ActionAdded, true))
	assert.ElementsMatch(t, []string{"gone@x.com", "a@x.com"}, server.Emails())
}

func TestProxyUserSyncHttp(t *testing.T) {
	var server = fakeproxy.New(t)
	stubParameters(t, &proxy.ProxyParameters{
		BaseUrl:      server.URL,
		MasterKey:    fakeproxy.MasterKey,
		DesiredUsers: []*proxy.DesiredUser{{Email: "a@x.com", Role: "internal_user"}},
	}, nil)

	var rec = httptest.NewRecorder()
	proxyUserSyncHttp(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User Added:\n\ta@x.com\n", rec.Body.String())
}

func TestProxyUserSyncPubSub_RecordError(t *testing.T) {
	stubParameters(t, nil, errors.New("proxy record was not found"))

	var err = proxyUserSyncPubSub(context.Background(), event.New())
	assert.EqualError(t, err, "proxy record was not found")
}
