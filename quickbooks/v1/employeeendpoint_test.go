package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRealm is a minimal in-memory employee resource behind the HTTP shape
// the endpoint expects.
type fakeRealm struct {
	employee EmployeeDTO
	gets     int
	posts    int
}

func (f *fakeRealm) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			f.gets++
			json.NewEncoder(w).Encode(employeeEnvelope{Employee: f.employee})
		case http.MethodPost:
			f.posts++
			var posted EmployeeDTO
			json.NewDecoder(r.Body).Decode(&posted)
			if posted.SyncToken != f.employee.SyncToken {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"Fault":{"Error":[{"Message":"Stale Object Error","code":"5010"}],"type":"ValidationFault"}}`))
				return
			}
			// apply sparse update and bump the token
			if posted.GivenName != "" {
				f.employee.GivenName = posted.GivenName
			}
			if posted.Active != nil {
				f.employee.Active = posted.Active
			}
			f.employee.SyncToken = f.employee.SyncToken + "1"
			json.NewEncoder(w).Encode(employeeEnvelope{Employee: f.employee})
		}
	})
}

func TestUpdateFetchesSyncTokenWhenMissing(t *testing.T) {
	active := true
	realm := &fakeRealm{employee: EmployeeDTO{ID: "55", SyncToken: "3", GivenName: "Jane", Active: &active}}
	srv := httptest.NewServer(realm.handler())
	defer srv.Close()

	client := NewQuickBooksClient(srv.URL, "realm1", "tok")

	updated, err := client.Employees.Update(context.Background(), &EmployeeDTO{ID: "55", GivenName: "Janet"})
	require.NoError(t, err)

	assert.Equal(t, 1, realm.gets, "missing token should trigger one fetch")
	assert.Equal(t, "Janet", updated.GivenName)
	assert.NotEqual(t, "3", updated.SyncToken)
}

func TestUpdateTrustsSuppliedSyncToken(t *testing.T) {
	realm := &fakeRealm{employee: EmployeeDTO{ID: "55", SyncToken: "3", GivenName: "Jane"}}
	srv := httptest.NewServer(realm.handler())
	defer srv.Close()

	client := NewQuickBooksClient(srv.URL, "realm1", "tok")

	_, err := client.Employees.Update(context.Background(), &EmployeeDTO{ID: "55", SyncToken: "3", GivenName: "Janet"})
	require.NoError(t, err)

	assert.Equal(t, 0, realm.gets)
}

func TestUpdateStaleTokenSurfacesConflict(t *testing.T) {
	realm := &fakeRealm{employee: EmployeeDTO{ID: "55", SyncToken: "4", GivenName: "Jane"}}
	srv := httptest.NewServer(realm.handler())
	defer srv.Close()

	client := NewQuickBooksClient(srv.URL, "realm1", "tok")

	_, err := client.Employees.Update(context.Background(), &EmployeeDTO{ID: "55", SyncToken: "3", GivenName: "Janet"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, realm.posts, "a stale token must not be retried")
}

func TestDeactivateKeepsRecordAndFlipsActive(t *testing.T) {
	active := true
	realm := &fakeRealm{employee: EmployeeDTO{ID: "55", SyncToken: "0", GivenName: "Jane", FamilyName: "Doe", Active: &active}}
	srv := httptest.NewServer(realm.handler())
	defer srv.Close()

	client := NewQuickBooksClient(srv.URL, "realm1", "tok")

	result, err := client.Employees.Deactivate(context.Background(), "55")
	require.NoError(t, err)

	require.NotNil(t, result.Active)
	assert.False(t, *result.Active)

	// record still retrievable afterwards, token chain intact
	got, err := client.Employees.Get(context.Background(), "55")
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.GivenName)
	assert.NotEmpty(t, got.SyncToken)
}
