package reference

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workdeck/spending/internal/application/normalizer"
	"github.com/workdeck/spending/internal/application/port"
	"github.com/workdeck/spending/internal/domain/entity"
)

type mockClient struct {
	getUsersFunc       func(ctx context.Context) ([]port.WorkdeckUser, error)
	getProjectsFunc    func(ctx context.Context) ([]port.WorkdeckProject, error)
	getCurrentUserFunc func(ctx context.Context) (*port.WorkdeckUser, error)
	getTasksFunc       func(ctx context.Context) ([]port.WorkdeckTask, error)
	getExpensesFunc    func(ctx context.Context, q port.ExpenseQuery) ([]port.WorkdeckExpense, error)
}

func (m *mockClient) GetUsers(ctx context.Context) ([]port.WorkdeckUser, error) {
	if m.getUsersFunc != nil {
		return m.getUsersFunc(ctx)
	}
	return nil, nil
}

func (m *mockClient) GetProjects(ctx context.Context) ([]port.WorkdeckProject, error) {
	if m.getProjectsFunc != nil {
		return m.getProjectsFunc(ctx)
	}
	return nil, nil
}

func (m *mockClient) GetCurrentUser(ctx context.Context) (*port.WorkdeckUser, error) {
	if m.getCurrentUserFunc != nil {
		return m.getCurrentUserFunc(ctx)
	}
	return nil, nil
}

func (m *mockClient) GetTasks(ctx context.Context) ([]port.WorkdeckTask, error) {
	if m.getTasksFunc != nil {
		return m.getTasksFunc(ctx)
	}
	return nil, nil
}

func (m *mockClient) GetExpenses(ctx context.Context, q port.ExpenseQuery) ([]port.WorkdeckExpense, error) {
	if m.getExpensesFunc != nil {
		return m.getExpensesFunc(ctx, q)
	}
	return nil, nil
}

type nopLogger struct {
	mu     sync.Mutex
	errors int
}

func (l *nopLogger) Info(string, ...interface{}) {}
func (l *nopLogger) Error(string, ...interface{}) {
	l.mu.Lock()
	l.errors++
	l.mu.Unlock()
}

func newLoader(client port.WorkdeckClient, cfg Config) (*Loader, *nopLogger) {
	logger := &nopLogger{}
	l := NewLoader(client, normalizer.New("EUR", logger), cfg, logger)
	l.now = func() time.Time { return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) }
	return l, logger
}

func fullClient() *mockClient {
	return &mockClient{
		getUsersFunc: func(ctx context.Context) ([]port.WorkdeckUser, error) {
			return []port.WorkdeckUser{{ID: "u1", FullName: "Ana Ruiz"}, {ID: "u2", FullName: "Ben Cole"}}, nil
		},
		getProjectsFunc: func(ctx context.Context) ([]port.WorkdeckProject, error) {
			return []port.WorkdeckProject{
				{ID: "p1", Code: "BIO", Name: "Biogemse", ColorAllTasks: "#FF0000", Activities: []port.WorkdeckActivity{
					{ID: "a1", Name: "Design", Position: 3},
					{ID: "a2", Name: "Build", Position: 7},
				}},
				{ID: "p2", Code: "GEN", Name: "General"},
			}, nil
		},
		getCurrentUserFunc: func(ctx context.Context) (*port.WorkdeckUser, error) {
			return &port.WorkdeckUser{ID: "m1", FullName: "Mia Lee", IsManager: true, ManagerOf: []port.IDRef{{ID: "u1"}, {ID: "u2"}}}, nil
		},
		getTasksFunc: func(ctx context.Context) ([]port.WorkdeckTask, error) {
			return []port.WorkdeckTask{
				{ID: "t1", Name: "Sketch", Position: 1, Activity: &port.IDRef{ID: "a1"}},
				{ID: "t2", Name: "Orphan", Position: 2},
			}, nil
		},
		getExpensesFunc: func(ctx context.Context, q port.ExpenseQuery) ([]port.WorkdeckExpense, error) {
			return []port.WorkdeckExpense{{ID: "e1", Status: 2, Amount: "10", Currency: port.WorkdeckCurrency{ID: "EUR"}}}, nil
		},
	}
}

func TestLoader_Load_TransformsAllSources(t *testing.T) {
	var gotQuery port.ExpenseQuery
	client := fullClient()
	inner := client.getExpensesFunc
	client.getExpensesFunc = func(ctx context.Context, q port.ExpenseQuery) ([]port.WorkdeckExpense, error) {
		gotQuery = q
		return inner(ctx, q)
	}

	loader, _ := newLoader(client, Config{HistoryDays: 30})
	snap := loader.Load(context.Background())

	assert.Empty(t, snap.Failed)
	assert.Equal(t, []entity.User{{ID: "u1", Name: "Ana Ruiz"}, {ID: "u2", Name: "Ben Cole"}}, snap.Reference.Users)

	require.Len(t, snap.Reference.Projects, 2)
	assert.Equal(t, "#FF0000", snap.Reference.Projects[0].Color)
	assert.Equal(t, DefaultProjectColor, snap.Reference.Projects[1].Color)

	require.Len(t, snap.Reference.Activities, 2)
	assert.Equal(t, entity.Activity{ID: "a2", ProjectID: "p1", Code: "WP2", Name: "Build", Order: 7}, snap.Reference.Activities[1])

	require.Len(t, snap.Reference.Tasks, 1)
	assert.Equal(t, "a1", snap.Reference.Tasks[0].ActivityID)

	assert.Equal(t, "m1", snap.CurrentUser.ID)
	assert.True(t, snap.CurrentUser.IsExpenseAdmin)
	assert.True(t, snap.CurrentUser.IsPurchaseAdmin)
	assert.Equal(t, []string{"u1", "u2"}, snap.CurrentUser.DirectReports)

	require.Len(t, snap.History, 1)
	assert.Equal(t, entity.StatusDenied, snap.History[0].Status)

	assert.Equal(t, port.ExpenseQuery{StartDate: "11/01/2026", EndDate: "10/02/2026"}, gotQuery)
}

func TestLoader_Load_IsolatesFailures(t *testing.T) {
	client := fullClient()
	client.getProjectsFunc = func(ctx context.Context) ([]port.WorkdeckProject, error) {
		return nil, errors.New("503")
	}
	client.getTasksFunc = func(ctx context.Context) ([]port.WorkdeckTask, error) {
		panic("bad payload")
	}

	loader, logger := newLoader(client, Config{})
	snap := loader.Load(context.Background())

	assert.ElementsMatch(t, []string{"projects", "tasks"}, snap.Failed)
	assert.Empty(t, snap.Reference.Projects)
	assert.Empty(t, snap.Reference.Tasks)
	assert.Len(t, snap.Reference.Users, 2)
	assert.Equal(t, "m1", snap.CurrentUser.ID)
	assert.Equal(t, 2, logger.errors)
}

func TestLoader_Load_AnonymousWhenCurrentUserMissing(t *testing.T) {
	client := fullClient()
	client.getCurrentUserFunc = func(ctx context.Context) (*port.WorkdeckUser, error) {
		return nil, errors.New("unauthorized")
	}

	loader, _ := newLoader(client, Config{})
	snap := loader.Load(context.Background())

	assert.Equal(t, entity.AnonymousUser(), snap.CurrentUser)
	assert.False(t, snap.CurrentUser.IsManager)
	assert.Contains(t, snap.Failed, "current_user")
}

func TestLoader_Load_TimeoutCountsAsFailure(t *testing.T) {
	client := fullClient()
	client.getUsersFunc = func(ctx context.Context) ([]port.WorkdeckUser, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	loader, _ := newLoader(client, Config{Timeout: 20 * time.Millisecond})

	start := time.Now()
	snap := loader.Load(context.Background())

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []string{"users"}, snap.Failed)
	assert.Empty(t, snap.Reference.Users)
	assert.Len(t, snap.Reference.Projects, 2)
}
