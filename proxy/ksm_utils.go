package proxy

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"

	ksm "github.com/keeper-security/secrets-manager-go/core"
)

const (
	usersCsvFileName    = "user_list.csv"
	credentialsFileName = "credentials.json"
)

// ProxyParameters are the settings of a sync run stored in a Keeper record.
type ProxyParameters struct {
	BaseUrl     string
	MasterKey   string
	DefaultRole string
	NoDelete    bool
	NoUpdate    bool
	Verbose     bool
	// DesiredUsers is set when the record carries a user_list.csv attachment.
	DesiredUsers []*DesiredUser
}

// ParseCustomStrings collects the string values of custom fields.
func ParseCustomStrings(fields []map[string]any) (values []string) {
	for _, field := range fields {
		var v any
		var ok bool
		if v, ok = field["value"]; ok {
			if v == nil {
				continue
			}
			switch vt := v.(type) {
			case []any:
				for _, v = range vt {
					var s string
					if s, ok = v.(string); ok {
						values = append(values, s)
					}
				}
			case string:
				values = append(values, vt)
			}
		}
	}
	return
}

func customBoolean(fields []map[string]any) (result bool, ok bool) {
	if len(fields) > 0 {
		result, ok = toBoolean(fields[0]["value"])
	}
	return
}

func isProxyRecord(r *ksm.Record) bool {
	if r.Type() != "login" {
		return false
	}
	var webUrl = r.GetFieldValueByType("url")
	if len(webUrl) == 0 {
		return false
	}
	var uri, err = url.Parse(webUrl)
	if err != nil || (uri.Scheme != "http" && uri.Scheme != "https") {
		return false
	}
	return len(r.Password()) > 0
}

// LoadProxyParameters reads the first proxy record shared to the KSM application.
// recordUid narrows the search to one record when set.
func LoadProxyParameters(configBase64 string, recordUid string) (pp *ProxyParameters, gcp *GoogleEndpointParameters, err error) {
	var config = ksm.NewMemoryKeyValueStorage(configBase64)
	var sm = ksm.NewSecretsManager(&ksm.ClientOptions{
		Config: config,
	})

	var filter []string
	if len(recordUid) > 0 {
		filter = append(filter, recordUid)
	}
	var records []*ksm.Record
	if records, err = sm.GetSecrets(filter); err != nil {
		return
	}

	var proxyRecord *ksm.Record
	for _, r := range records {
		if isProxyRecord(r) {
			proxyRecord = r
			break
		}
	}
	if proxyRecord == nil {
		err = errors.New("proxy record was not found. Make sure the record is valid and shared to KSM application")
		return
	}
	return LoadProxyParametersFromRecord(proxyRecord)
}

func LoadProxyParametersFromRecord(proxyRecord *ksm.Record) (pp *ProxyParameters, gcp *GoogleEndpointParameters, err error) {
	pp = &ProxyParameters{
		BaseUrl:     proxyRecord.GetFieldValueByType("url"),
		MasterKey:   proxyRecord.Password(),
		DefaultRole: DefaultUserRole,
	}

	if roles := ParseCustomStrings(proxyRecord.GetCustomFieldsByLabel("Default Role")); len(roles) > 0 && len(roles[0]) > 0 {
		pp.DefaultRole = roles[0]
	}
	var bv, ok bool
	if bv, ok = customBoolean(proxyRecord.GetCustomFieldsByLabel("No Delete")); ok {
		pp.NoDelete = bv
	}
	if bv, ok = customBoolean(proxyRecord.GetCustomFieldsByLabel("No Update")); ok {
		pp.NoUpdate = bv
	}
	if bv, ok = customBoolean(proxyRecord.GetCustomFieldsByLabel("Verbose")); ok {
		pp.Verbose = bv
	}

	if files := proxyRecord.FindFiles(usersCsvFileName); len(files) > 0 {
		if pp.DesiredUsers, err = ReadDesiredUsers(bytes.NewReader(files[0].GetFileData()), pp.DefaultRole); err != nil {
			err = fmt.Errorf("attachment \"%s\": %w", usersCsvFileName, err)
			return
		}
	}

	if files := proxyRecord.FindFiles(credentialsFileName); len(files) > 0 {
		var groups = ParseCustomStrings(proxyRecord.GetCustomFieldsByLabel("Google Groups"))
		if len(groups) == 0 {
			err = errors.New("\"Google Groups\" custom field is missing or does not contain any value")
			return
		}
		gcp = &GoogleEndpointParameters{
			AdminAccount: proxyRecord.GetFieldValueByType("login"),
			Credentials:  files[0].GetFileData(),
			Groups:       groups,
			DefaultRole:  pp.DefaultRole,
		}
	}

	if pp.DesiredUsers == nil && gcp == nil {
		err = fmt.Errorf("record has neither a \"%s\" nor a \"%s\" attachment", usersCsvFileName, credentialsFileName)
	}
	return
}
