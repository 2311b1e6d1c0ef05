package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timedock.com/timedock/auth"
	"timedock.com/timedock/core"
)

// fakeRemote answers the company-file routes the handlers reach through
// the gateway: an employee listing and a completed time activity.
func fakeRemote(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/query"):
			expr := r.URL.Query().Get("query")
			if strings.Contains(expr, "FROM Employee") {
				fmt.Fprint(w, `{"QueryResponse":{"Employee":[
					{"Id":"55","GivenName":"Jane","FamilyName":"Doe",
					 "PrimaryPhone":{"FreeFormNumber":"971501234567"}}]}}`)
				return
			}
			fmt.Fprint(w, `{"QueryResponse":{}}`)

		case strings.HasSuffix(r.URL.Path, "/timeactivity/42"):
			fmt.Fprint(w, `{"TimeActivity":{"Id":"42","SyncToken":"1",
				"TxnDate":"2025-03-10","StartTime":"09:00:00","EndTime":"17:00:00","Hours":8,"Minutes":0}}`)

		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"Fault":{"Error":[{"code":"610"}]}}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T, connected bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	remote := fakeRemote(t)

	store := auth.NewMemoryStore()
	if connected {
		require.NoError(t, store.Save(context.Background(), "acme", &auth.Credential{
			AccessToken:  "token",
			RefreshToken: "refresh",
			RealmID:      "realm-1",
			ExpiresAt:    time.Now().Add(time.Hour),
		}))
	}

	manager := auth.NewManager(auth.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost/callback",
	}, store, nil)
	clock := core.NewService(manager, remote.URL, nil)

	handler := NewQuickBooksHandler(manager, clock, nil)
	r := gin.New()
	handler.RegisterPublic(r)
	handler.Register(r)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConnectRequiresCompany(t *testing.T) {
	r := newTestRouter(t, false)
	w := do(r, http.MethodGet, "/quickbooks/connect", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectReturnsAuthorizationURL(t *testing.T) {
	r := newTestRouter(t, false)
	w := do(r, http.MethodGet, "/quickbooks/connect?company_id=acme", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Contains(t, out.Data.URL, "state=")
	assert.Contains(t, out.Data.URL, "client_id=client-id")
}

func TestStatusNotConnected(t *testing.T) {
	r := newTestRouter(t, false)
	w := do(r, http.MethodGet, "/quickbooks/status?company_id=acme", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"connected":false`)
}

func TestListEmployeesNormalized(t *testing.T) {
	r := newTestRouter(t, true)
	w := do(r, http.MethodGet, "/employees?company_id=acme", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `"first_name":"Jane"`)
	assert.Contains(t, body, `"phone_code":"971"`)
	assert.Contains(t, body, `"phone_number":"501234567"`)
}

func TestListEmployeesWithoutCredential(t *testing.T) {
	r := newTestRouter(t, false)
	w := do(r, http.MethodGet, "/employees?company_id=acme", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestClockInValidation(t *testing.T) {
	r := newTestRouter(t, true)
	w := do(r, http.MethodPost, "/clock/in?company_id=acme", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "employee_ref")
}

func TestClockOutCompletedActivityRejected(t *testing.T) {
	r := newTestRouter(t, true)
	w := do(r, http.MethodPost, "/clock/out?company_id=acme", `{"activity_id":"42"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not active")
}

func TestClockOutUnknownActivity(t *testing.T) {
	r := newTestRouter(t, true)
	w := do(r, http.MethodPost, "/clock/out?company_id=acme", `{"activity_id":"404"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordSessionZeroDurationRejected(t *testing.T) {
	r := newTestRouter(t, true)
	w := do(r, http.MethodPost, "/timeactivities?company_id=acme",
		`{"employee_ref":"55","start":"2025-03-10T09:00:00","end":"2025-03-10T09:00:00"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no duration")
}

func TestCallbackMissingCode(t *testing.T) {
	r := newTestRouter(t, false)
	w := do(r, http.MethodGet, "/quickbooks/callback?state=whatever", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing authorization code")
}
