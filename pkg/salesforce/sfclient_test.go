package salesforce

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gosf "github.com/k-capehart/go-salesforce/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrg is a tiny in-memory Lead table served over the REST paths
// go-salesforce calls.
type fakeOrg struct {
	leads   map[string]map[string]any // phone -> record
	soql    []string
	created map[string]any
	updated map[string]any
	fail    int // status returned for every request when non-zero
}

func (o *fakeOrg) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if o.fail != 0 {
		w.WriteHeader(o.fail)
		_ = json.NewEncoder(w).Encode([]map[string]any{{"message": "boom", "errorCode": "UNKNOWN"}})
		return
	}

	switch {
	case strings.Contains(r.URL.Path, "/query"):
		q := r.URL.Query().Get("q")
		o.soql = append(o.soql, q)
		var records []map[string]any
		for phone, rec := range o.leads {
			if strings.Contains(q, "Phone = '"+phone+"'") {
				records = append(records, rec)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"totalSize": len(records), "done": true, "records": records})

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/sobjects/Lead"):
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &o.created)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "00Qnew", "success": true, "errors": []any{}})

	case r.Method == http.MethodPatch:
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &o.updated)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newFakeOrgClient(t *testing.T, org *fakeOrg) Client {
	t.Helper()
	ts := httptest.NewServer(org)
	t.Cleanup(ts.Close)

	sf, err := gosf.Init(gosf.Creds{AccessToken: "test-token", Domain: ts.URL},
		gosf.WithValidateAuthentication(false),
		gosf.WithRoundTripper(http.DefaultTransport),
	)
	require.NoError(t, err)
	return NewClient(sf)
}

func TestLeadFlow_NewCaller(t *testing.T) {
	org := &fakeOrg{leads: map[string]map[string]any{}}
	client := newFakeOrgClient(t, org)
	ctx := context.Background()

	lead, err := FindLeadByPhone(ctx, client, "5551234567")
	require.NoError(t, err)
	assert.Nil(t, lead)
	require.Len(t, org.soql, 1)
	assert.Contains(t, org.soql[0], "FROM Lead WHERE Phone = '5551234567' AND IsConverted = false")

	id, err := CreateLead(ctx, client, map[string]any{
		"FirstName":  "Dana",
		"LastName":   "Reyes",
		"Company":    "Dana Reyes",
		"Phone":      "5551234567",
		"LeadSource": "Call Center",
	})
	require.NoError(t, err)
	assert.Equal(t, "00Qnew", id)
	assert.Equal(t, "Reyes", org.created["LastName"])
	assert.Equal(t, "Call Center", org.created["LeadSource"])
}

func TestLeadFlow_ReturningCaller(t *testing.T) {
	org := &fakeOrg{leads: map[string]map[string]any{
		"5551234567": {
			"attributes": map[string]any{"type": "Lead"},
			"Id":         "00Qold",
			"FirstName":  "Dana",
			"LastName":   "Reyes",
			"Phone":      "5551234567",
			"Status":     "Open - Not Contacted",
		},
	}}
	client := newFakeOrgClient(t, org)
	ctx := context.Background()

	lead, err := FindLeadByPhone(ctx, client, "5551234567")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "00Qold", lead.ID)
	assert.Equal(t, "Open - Not Contacted", lead.Status)

	require.NoError(t, UpdateLead(ctx, client, lead.ID, map[string]any{"Street": "12 Elm St"}))
	assert.Equal(t, "12 Elm St", org.updated["Street"])
}

func TestLeadFlow_OrgErrors(t *testing.T) {
	client := newFakeOrgClient(t, &fakeOrg{fail: http.StatusBadRequest})
	ctx := context.Background()

	_, err := FindLeadByPhone(ctx, client, "5551234567")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: find lead by phone")

	err = UpdateLead(ctx, client, "00Qold", map[string]any{"Street": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: update lead 00Qold")
}

func TestSFClient_InsertOne_Rejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "",
			"success": false,
			"errors":  []map[string]any{{"message": "required field missing"}},
		})
	}))
	defer ts.Close()

	sf, err := gosf.Init(gosf.Creds{AccessToken: "test-token", Domain: ts.URL},
		gosf.WithValidateAuthentication(false),
		gosf.WithRoundTripper(http.DefaultTransport),
	)
	require.NoError(t, err)

	_, err = NewClient(sf).InsertOne(context.Background(), "Lead", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert Lead failed")
}
