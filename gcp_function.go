package ksm_proxy_users

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/rs/zerolog"

	"keepersecurity.com/ksm-proxy-users/internal/logging"
	"keepersecurity.com/ksm-proxy-users/proxy"
)

func init() {
	// Register an HTTP function with the Functions Framework
	functions.HTTP("ProxyUserSyncHttp", proxyUserSyncHttp)
	functions.CloudEvent("ProxyUserSyncPubSub", proxyUserSyncPubSub)
}

const ksmConfigName = "KSM_CONFIG_BASE64"
const ksmRecordUid = "KSM_RECORD_UID"

var loadProxyParameters = proxy.LoadProxyParameters

func runProxySync(ctx context.Context) (syncStat *proxy.SyncStat, err error) {
	var logger = logging.New(logging.Config{Level: logging.InfoLevel, JSONOutput: true})

	var configBase64 = os.Getenv(ksmConfigName)
	if len(configBase64) == 0 {
		err = fmt.Errorf("environment variable \"%s\" is not set", ksmConfigName)
		logger.Error().Err(err).Send()
		return
	}

	var pp *proxy.ProxyParameters
	var gcp *proxy.GoogleEndpointParameters
	if pp, gcp, err = loadProxyParameters(configBase64, os.Getenv(ksmRecordUid)); err != nil {
		logger.Error().Err(err).Msg("cannot load proxy record")
		return
	}
	if pp.Verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	var source proxy.IUserSource
	if gcp != nil {
		source = proxy.NewGoogleEndpoint(*gcp)
	} else {
		source = proxy.NewStaticSource(pp.DesiredUsers)
	}

	var directory = proxy.NewDirectory(pp.BaseUrl, pp.MasterKey, logging.WithComponent(logger, "directory"))
	var sync = proxy.NewProxySync(source, directory, proxy.SyncOptions{
		NoDelete: pp.NoDelete,
		NoUpdate: pp.NoUpdate,
	}, logging.WithComponent(logger, "sync"))
	if syncStat, err = sync.Sync(ctx); err != nil {
		logger.Error().Err(err).Msg("proxy user sync failed")
		return
	}
	logger.Info().
		Int("added", syncStat.Count(proxy.ActionAdded, true)).
		Int("deleted", syncStat.Count(proxy.ActionDeleted, true)).
		Int("updated", syncStat.Count(proxy.ActionUpdated, true)).
		Int("failed", len(failedResults(syncStat))).
		Msg("proxy user sync finished")
	return
}

func failedResults(syncStat *proxy.SyncStat) (failed []*proxy.SyncResult) {
	for _, r := range syncStat.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return
}

func printStatistics(w io.Writer, syncStat *proxy.SyncStat) {
	if syncStat == nil {
		return
	}
	var sections = []struct {
		title   string
		action  proxy.SyncAction
		success bool
	}{
		{"User Added:", proxy.ActionAdded, true},
		{"User Add Failure:", proxy.ActionAdded, false},
		{"User Deleted:", proxy.ActionDeleted, true},
		{"User Delete Failure:", proxy.ActionDeleted, false},
		{"User Updated:", proxy.ActionUpdated, true},
		{"User Update Failure:", proxy.ActionUpdated, false},
	}
	for _, section := range sections {
		var printed = false
		for _, r := range syncStat.Results {
			if r.Action != section.action || r.Success != section.success {
				continue
			}
			if !printed {
				_, _ = fmt.Fprintln(w, section.title)
				printed = true
			}
			if r.Success {
				_, _ = fmt.Fprintf(w, "\t%s\n", r.Email)
			} else {
				_, _ = fmt.Fprintf(w, "\t%s: %s\n", r.Email, r.Error)
			}
		}
	}
	if count := syncStat.Count(proxy.ActionUnchanged, true); count > 0 {
		_, _ = fmt.Fprintf(w, "Unchanged: %d\n", count)
	}
}

// proxyUserSyncHttp is an HTTP handler
func proxyUserSyncHttp(w http.ResponseWriter, r *http.Request) {
	var syncStat, err = runProxySync(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	printStatistics(w, syncStat)
}

// proxyUserSyncPubSub consumes a CloudEvent message, the payload is ignored.
func proxyUserSyncPubSub(ctx context.Context, _ event.Event) (err error) {
	var syncStat *proxy.SyncStat
	if syncStat, err = runProxySync(ctx); err == nil {
		printStatistics(os.Stdout, syncStat)
	}
	return
}
