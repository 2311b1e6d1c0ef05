package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timedock.com/timedock/auth"
	qb "timedock.com/timedock/quickbooks/v1"
)

func TestSplitDuration(t *testing.T) {
	day := "2025-03-10"
	at := func(clock string) time.Time {
		ts, err := time.Parse("2006-01-02 15:04:05", day+" "+clock)
		require.NoError(t, err)
		return ts
	}

	tests := []struct {
		name        string
		start, end  time.Time
		wantHours   int
		wantMinutes int
	}{
		{"regular shift", at("09:00:00"), at("17:30:00"), 8, 30},
		{"over midnight", at("23:00:00"), at("01:00:00").AddDate(0, 0, 1), 2, 0},
		{"wall clock wraps without date carry", at("23:00:00"), at("01:00:00"), 2, 0},
		{"sub-minute truncates", at("09:00:00"), at("09:00:59"), 0, 0},
		{"zero length", at("09:00:00"), at("09:00:00"), 0, 0},
		{"just under a day", at("00:10:00"), at("00:05:00"), 23, 55},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, m := SplitDuration(tc.start, tc.end)
			assert.Equal(t, tc.wantHours, h)
			assert.Equal(t, tc.wantMinutes, m)
		})
	}
}

func TestIsActive(t *testing.T) {
	tests := []struct {
		name string
		ta   *qb.TimeActivityDTO
		want bool
	}{
		{"open session", &qb.TimeActivityDTO{StartTime: "09:00:00", EndTime: "09:00:00"}, true},
		{"completed session", &qb.TimeActivityDTO{StartTime: "09:00:00", EndTime: "17:00:00", Hours: 8}, false},
		{"equal times but nonzero duration", &qb.TimeActivityDTO{StartTime: "09:00:00", EndTime: "09:00:00", Minutes: 1}, false},
		{"no start time", &qb.TimeActivityDTO{}, false},
		{"nil record", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsActive(tc.ta))
		})
	}
}

// fakeBooks is an in-memory stand-in for the remote company file: create
// and replace semantics with version token bumps, plus a switch to reject
// bearers for the refresh-and-replay path.
type fakeBooks struct {
	mu         sync.Mutex
	activities map[string]qb.TimeActivityDTO
	nextID     int
	reject401  int
	requests   int
}

func newFakeBooks() *fakeBooks {
	return &fakeBooks{activities: map[string]qb.TimeActivityDTO{}, nextID: 1}
}

func (f *fakeBooks) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.requests++

		if f.reject401 > 0 {
			f.reject401--
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"fault":{"type":"AUTHENTICATION"}}`)
			return
		}

		switch {
		case strings.Contains(r.URL.Path, "/query"):
			out := qb.QueryResponse{}
			for _, ta := range f.activities {
				out.TimeActivity = append(out.TimeActivity, ta)
			}
			json.NewEncoder(w).Encode(map[string]any{"QueryResponse": out})

		case r.Method == http.MethodGet:
			id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
			ta, ok := f.activities[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"Fault":{"Error":[{"code":"610","Message":"Object Not Found"}]}}`)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"TimeActivity": ta})

		case r.Method == http.MethodPost:
			var ta qb.TimeActivityDTO
			json.NewDecoder(r.Body).Decode(&ta)

			if ta.ID == "" {
				ta.ID = strconv.Itoa(f.nextID)
				f.nextID++
				ta.SyncToken = "0"
			} else {
				prev := f.activities[ta.ID]
				if ta.SyncToken != prev.SyncToken {
					w.WriteHeader(http.StatusBadRequest)
					fmt.Fprint(w, `{"Fault":{"Error":[{"code":"5010","Message":"Stale Object Error"}]}}`)
					return
				}
				token, _ := strconv.Atoi(ta.SyncToken)
				ta.SyncToken = strconv.Itoa(token + 1)
			}
			f.activities[ta.ID] = ta
			json.NewEncoder(w).Encode(map[string]any{"TimeActivity": ta})

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newTestService(t *testing.T, books *fakeBooks) (*Service, *auth.Manager) {
	t.Helper()

	booksSrv := httptest.NewServer(books.handler())
	t.Cleanup(booksSrv.Close)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-token",
			"refresh_token": "fresh-refresh",
			"expires_in":    3600,
			"token_type":    "bearer",
		})
	}))
	t.Cleanup(tokenSrv.Close)

	store := auth.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "acme", &auth.Credential{
		AccessToken:  "valid-token",
		RefreshToken: "valid-refresh",
		RealmID:      "realm-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}))

	mgr := auth.NewManager(auth.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost/callback",
		TokenURL:     tokenSrv.URL,
	}, store, nil)

	return NewService(mgr, booksSrv.URL, nil), mgr
}

func TestClockInAndOut(t *testing.T) {
	books := newFakeBooks()
	svc, _ := newTestService(t, books)

	clock := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	ctx := context.Background()
	created, err := svc.ClockIn(ctx, "acme", ClockInInput{EmployeeRef: "55"})
	require.NoError(t, err)
	assert.True(t, IsActive(created))
	assert.Equal(t, "2025-03-10", created.TxnDate)
	assert.Equal(t, "09:00:00", created.StartTime)

	status, err := svc.Status(ctx, "acme", "55")
	require.NoError(t, err)
	assert.True(t, status.ClockedIn)

	clock = clock.Add(8*time.Hour + 30*time.Minute)
	closed, err := svc.ClockOut(ctx, "acme", created.ID, time.Time{})
	require.NoError(t, err)
	assert.False(t, IsActive(closed))
	assert.Equal(t, 8, closed.Hours)
	assert.Equal(t, 30, closed.Minutes)
	assert.Equal(t, "17:30:00", closed.EndTime)

	status, err = svc.Status(ctx, "acme", "55")
	require.NoError(t, err)
	assert.False(t, status.ClockedIn)
}

func TestClockInTwiceRejected(t *testing.T) {
	books := newFakeBooks()
	svc, _ := newTestService(t, books)
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, "acme", ClockInInput{EmployeeRef: "55"})
	require.NoError(t, err)

	_, err = svc.ClockIn(ctx, "acme", ClockInInput{EmployeeRef: "55"})
	assert.ErrorIs(t, err, ErrAlreadyActive)

	// a different employee is unaffected
	_, err = svc.ClockIn(ctx, "acme", ClockInInput{EmployeeRef: "99"})
	assert.NoError(t, err)
}

func TestClockOutTwiceRejected(t *testing.T) {
	books := newFakeBooks()
	svc, _ := newTestService(t, books)
	ctx := context.Background()

	created, err := svc.ClockIn(ctx, "acme", ClockInInput{EmployeeRef: "55"})
	require.NoError(t, err)

	_, err = svc.ClockOut(ctx, "acme", created.ID, time.Time{})
	require.NoError(t, err)

	_, err = svc.ClockOut(ctx, "acme", created.ID, time.Time{})
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestClockOutOverMidnight(t *testing.T) {
	books := newFakeBooks()
	svc, _ := newTestService(t, books)
	ctx := context.Background()

	clock := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	created, err := svc.ClockIn(ctx, "acme", ClockInInput{EmployeeRef: "55"})
	require.NoError(t, err)

	clock = time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC)
	closed, err := svc.ClockOut(ctx, "acme", created.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, closed.Hours)
	assert.Equal(t, 0, closed.Minutes)
}

func TestRejectedBearerRefreshedOnce(t *testing.T) {
	books := newFakeBooks()
	svc, mgr := newTestService(t, books)
	ctx := context.Background()

	books.reject401 = 1
	status, err := svc.Status(ctx, "acme", "55")
	require.NoError(t, err)
	assert.False(t, status.ClockedIn)

	// the refreshed credential is what got persisted
	cred, err := mgr.GetValidCredential(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", cred.AccessToken)
}

func TestRejectedBearerSecondFailureSurfaces(t *testing.T) {
	books := newFakeBooks()
	svc, _ := newTestService(t, books)
	ctx := context.Background()

	books.reject401 = 2
	_, err := svc.Status(ctx, "acme", "55")
	assert.ErrorIs(t, err, qb.ErrUnauthorized)
}

func TestRecordSession(t *testing.T) {
	books := newFakeBooks()
	svc, _ := newTestService(t, books)
	ctx := context.Background()

	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	end := start.Add(7*time.Hour + 45*time.Minute)

	created, err := svc.RecordSession(ctx, "acme", "55", start, end, "site visit")
	require.NoError(t, err)
	assert.False(t, IsActive(created))
	assert.Equal(t, 7, created.Hours)
	assert.Equal(t, 45, created.Minutes)
}

func TestRecordSessionSinglePunchRejected(t *testing.T) {
	books := newFakeBooks()
	svc, _ := newTestService(t, books)
	ctx := context.Background()

	punch := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	_, err := svc.RecordSession(ctx, "acme", "55", punch, punch, "imported")
	assert.ErrorIs(t, err, ErrEmptySession)

	// nothing was written, so the employee can still clock in
	svc.now = func() time.Time { return punch }
	created, err := svc.ClockIn(ctx, "acme", ClockInInput{EmployeeRef: "55"})
	require.NoError(t, err)
	assert.True(t, IsActive(created))
}

func TestReportTotals(t *testing.T) {
	books := newFakeBooks()
	svc, _ := newTestService(t, books)
	ctx := context.Background()

	day := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	_, err := svc.RecordSession(ctx, "acme", "55", day, day.Add(8*time.Hour+40*time.Minute), "")
	require.NoError(t, err)
	_, err = svc.RecordSession(ctx, "acme", "55", day.AddDate(0, 0, 1), day.AddDate(0, 0, 1).Add(3*time.Hour+40*time.Minute), "")
	require.NoError(t, err)
	_, err = svc.RecordSession(ctx, "acme", "99", day, day.Add(2*time.Hour), "")
	require.NoError(t, err)

	report, err := svc.Report(ctx, "acme", "55", "2025-03-09", "2025-03-12")
	require.NoError(t, err)
	assert.Len(t, report.Activities, 2)
	assert.Equal(t, 12, report.TotalHours)
	assert.Equal(t, 20, report.TotalMinutes)
}
