// Package reference loads organisational reference data and expense history from Workdeck.
package reference

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/workdeck/spending/internal/application/normalizer"
	"github.com/workdeck/spending/internal/application/port"
	"github.com/workdeck/spending/internal/domain/entity"
)

// DefaultProjectColor is used when a project has no color of its own
const DefaultProjectColor = "#3B82F6"

const workdeckDateLayout = "02/01/2006"

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Snapshot is everything one load produced. Sources that failed are listed in
// Failed and contribute empty data.
type Snapshot struct {
	Reference   entity.ReferenceData
	CurrentUser entity.CurrentUser
	History     []*entity.SpendingRequest
	Failed      []string
}

// Config controls the load window and deadline
type Config struct {
	Timeout     time.Duration
	HistoryDays int
}

// Loader fans out the Workdeck queries and joins them into a Snapshot
type Loader struct {
	client     port.WorkdeckClient
	normalizer *normalizer.Normalizer
	cfg        Config
	logger     Logger
	now        func() time.Time
}

// NewLoader creates a loader. Zero config values fall back to a 15s timeout and a one year window.
func NewLoader(client port.WorkdeckClient, n *normalizer.Normalizer, cfg Config, logger Logger) *Loader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 365
	}
	return &Loader{
		client:     client,
		normalizer: n,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Load never returns an error: each failed source is logged and left empty,
// and a missing current user degrades to the anonymous profile.
func (l *Loader) Load(ctx context.Context) (snap *Snapshot) {
	snap = &Snapshot{
		Reference: entity.ReferenceData{
			Users:      []entity.User{},
			Projects:   []entity.Project{},
			Activities: []entity.Activity{},
			Tasks:      []entity.Task{},
		},
		CurrentUser: entity.AnonymousUser(),
		History:     []*entity.SpendingRequest{},
	}

	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Reference data load aborted", "panic", r)
			snap.CurrentUser = entity.AnonymousUser()
			snap.Failed = append(snap.Failed, "load")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	var (
		users    []port.WorkdeckUser
		projects []port.WorkdeckProject
		me       *port.WorkdeckUser
		tasks    []port.WorkdeckTask
		expenses []port.WorkdeckExpense
		failed   = make([]bool, 5)
	)

	end := l.now()
	query := port.ExpenseQuery{
		StartDate: end.AddDate(0, 0, -l.cfg.HistoryDays).Format(workdeckDateLayout),
		EndDate:   end.Format(workdeckDateLayout),
	}

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(idx int, source string, fn func(context.Context) error) {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
				if err != nil {
					failed[idx] = true
					l.logger.Error("Reference source failed", "source", source, "error", err)
				}
				// failures stay isolated to their own source
				err = nil
			}()
			return fn(gctx)
		})
	}

	fetch(0, "users", func(ctx context.Context) (err error) {
		users, err = l.client.GetUsers(ctx)
		return err
	})
	fetch(1, "projects", func(ctx context.Context) (err error) {
		projects, err = l.client.GetProjects(ctx)
		return err
	})
	fetch(2, "current_user", func(ctx context.Context) (err error) {
		me, err = l.client.GetCurrentUser(ctx)
		return err
	})
	fetch(3, "tasks", func(ctx context.Context) (err error) {
		tasks, err = l.client.GetTasks(ctx)
		return err
	})
	fetch(4, "expenses", func(ctx context.Context) (err error) {
		expenses, err = l.client.GetExpenses(ctx, query)
		return err
	})
	_ = g.Wait()

	for i, name := range []string{"users", "projects", "current_user", "tasks", "expenses"} {
		if failed[i] {
			snap.Failed = append(snap.Failed, name)
		}
	}

	snap.Reference.Users = mapUsers(users)
	snap.Reference.Projects, snap.Reference.Activities = mapProjects(projects)
	snap.Reference.Tasks = mapTasks(tasks)
	if me != nil && me.ID != "" {
		snap.CurrentUser = mapCurrentUser(*me)
	}
	if l.normalizer != nil {
		snap.History = l.normalizer.NormalizeAll(expenses)
	}

	l.logger.Info("Reference data loaded",
		"users", len(snap.Reference.Users),
		"projects", len(snap.Reference.Projects),
		"activities", len(snap.Reference.Activities),
		"tasks", len(snap.Reference.Tasks),
		"history", len(snap.History),
		"current_user", snap.CurrentUser.ID,
		"failed_sources", snap.Failed,
	)

	return snap
}

func mapUsers(in []port.WorkdeckUser) []entity.User {
	out := make([]entity.User, 0, len(in))
	for _, u := range in {
		out = append(out, entity.User{ID: u.ID, Name: u.FullName})
	}
	return out
}

func mapProjects(in []port.WorkdeckProject) ([]entity.Project, []entity.Activity) {
	projects := make([]entity.Project, 0, len(in))
	activities := make([]entity.Activity, 0)
	for i, p := range in {
		color := p.ColorAllTasks
		if color == "" {
			color = DefaultProjectColor
		}
		projects = append(projects, entity.Project{
			ID:    p.ID,
			Code:  p.Code,
			Name:  p.Name,
			Color: color,
			Order: i,
		})
		for j, a := range p.Activities {
			activities = append(activities, entity.Activity{
				ID:        a.ID,
				ProjectID: p.ID,
				Code:      fmt.Sprintf("WP%d", j+1),
				Name:      a.Name,
				Order:     a.Position,
			})
		}
	}
	return projects, activities
}

func mapTasks(in []port.WorkdeckTask) []entity.Task {
	out := make([]entity.Task, 0, len(in))
	for _, t := range in {
		if t.Activity == nil || t.Activity.ID == "" {
			continue
		}
		out = append(out, entity.Task{
			ID:         t.ID,
			ActivityID: t.Activity.ID,
			Name:       t.Name,
			Order:      t.Position,
		})
	}
	return out
}

// mapCurrentUser grants both admin rights to managers since Workdeck has no finer signal
func mapCurrentUser(u port.WorkdeckUser) entity.CurrentUser {
	reports := make([]string, 0, len(u.ManagerOf))
	for _, r := range u.ManagerOf {
		if r.ID != "" {
			reports = append(reports, r.ID)
		}
	}
	return entity.CurrentUser{
		ID:              u.ID,
		Name:            u.FullName,
		IsManager:       u.IsManager,
		IsExpenseAdmin:  u.IsManager,
		IsPurchaseAdmin: u.IsManager,
		DirectReports:   reports,
	}
}
