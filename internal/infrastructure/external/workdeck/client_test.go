package workdeck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/workdeck/spending/internal/application/port"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, retries uint64) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Token: "secret", MaxRetries: retries}, zap.NewNop(), WithBackoff(time.Millisecond))
}

func TestGetUsers_UnwrapsEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/queries/users", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"status":"OK","result":[{"id":"u1","fullName":"Ana","isManager":true,"managerOf":[{"id":"u2"}]}]}`))
	}, 0)

	users, err := c.GetUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Ana", users[0].FullName)
	assert.Equal(t, []port.IDRef{{ID: "u2"}}, users[0].ManagerOf)
}

func TestGetExpenses_QueryParameters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/queries/expenses", r.URL.Path)
		assert.Equal(t, "endDate=01/03/2025&startDate=01/03/2024", r.URL.RawQuery)
		assert.Equal(t, "01/03/2024", r.URL.Query().Get("startDate"))
		_, _ = w.Write([]byte(`{"status":"OK","result":[
			{"id":"e1","status":2,"creator":{"id":"u1"},"project":"Apollo","amount":"12.50",
			 "currency":{"id":"EUR","symbol":"€"},"category":{"id":"c1","name":"Travel"},
			 "items":[{"id":"i1","amount":"12.50","date":"03/03/2025"}],"createdAt":"2025-03-03T10:00:00Z"}]}`))
	}, 0)

	expenses, err := c.GetExpenses(context.Background(), port.ExpenseQuery{StartDate: "01/03/2024", EndDate: "01/03/2025"})
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Apollo", expenses[0].Project.Name)
	assert.Equal(t, "Travel", expenses[0].Category.Name)
	assert.Equal(t, "12.50", expenses[0].Items[0].Amount)
}

func TestGetCurrentUser_UnwrappedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"me","fullName":"Marc","isManager":true}`))
	}, 0)

	me, err := c.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "me", me.ID)
	assert.True(t, me.IsManager)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "KO envelope", status: http.StatusOK, body: `{"status":"KO","errors":[{"code":"E1","message":"bad filter"}]}`, wantErr: ErrAPI, wantMsg: "bad filter"},
		{name: "ERROR with string result", status: http.StatusOK, body: `{"status":"ERROR","result":"maintenance"}`, wantErr: ErrAPI, wantMsg: "maintenance"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: ``, wantErr: ErrUnauthorized},
		{name: "client error", status: http.StatusBadRequest, body: `{"message":"missing startDate"}`, wantMsg: "missing startDate"},
		{name: "malformed json", status: http.StatusOK, body: `{"status":`, wantMsg: "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, 0)

			_, err := c.GetTasks(context.Background())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"status":"OK","result":[{"id":"t1","name":"Design","activity":{"id":"a1"}}]}`))
	}, 3)

	tasks, err := c.GetTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "a1", tasks[0].Activity.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}, 3)

	_, err := c.GetProjects(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestContextCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.GetProjects(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBearer(t *testing.T) {
	assert.Equal(t, "Bearer abc", bearer("abc"))
	assert.Equal(t, "Bearer abc", bearer("Bearer abc"))
}
