package port

import (
	"context"
	"encoding/json"
)

// IDRef is a bare reference to another Workdeck entity
type IDRef struct {
	ID string `json:"id"`
}

// WorkdeckUser is a user as returned by the Workdeck user queries
type WorkdeckUser struct {
	ID        string  `json:"id"`
	FullName  string  `json:"fullName"`
	IsManager bool    `json:"isManager"`
	ManagerOf []IDRef `json:"managerOf"`
}

// WorkdeckActivity is an activity nested inside a project summary
type WorkdeckActivity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// WorkdeckProject is a project summary
type WorkdeckProject struct {
	ID            string             `json:"id"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	ColorAllTasks string             `json:"colorAllTasks"`
	Activities    []WorkdeckActivity `json:"activities"`
}

// WorkdeckTask is a task linked to an activity
type WorkdeckTask struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	Activity *IDRef `json:"activity"`
}

// NamedRef is an {id, name} reference. Workdeck sends some of these as bare strings,
// which decode into Name.
type NamedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts either an object or a plain string
func (n *NamedRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n.Name = s
		return nil
	}
	type plain NamedRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*n = NamedRef(p)
	return nil
}

// WorkdeckCurrency is the currency block of an expense
type WorkdeckCurrency struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name,omitempty"`
}

// WorkdeckExpenseItem is one line of an upstream expense. Amounts are decimal strings.
type WorkdeckExpenseItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
}

// WorkdeckExpense is an expense record from the history query
type WorkdeckExpense struct {
	ID          string                `json:"id"`
	Status      int                   `json:"status"`
	Description string                `json:"description"`
	Creator     IDRef                 `json:"creator"`
	Project     *NamedRef             `json:"project,omitempty"`
	Items       []WorkdeckExpenseItem `json:"items"`
	Amount      string                `json:"amount"`
	Currency    WorkdeckCurrency      `json:"currency"`
	Category    *NamedRef             `json:"category,omitempty"`
	Date        string                `json:"date,omitempty"`
	CreatedAt   string                `json:"createdAt"`
	UpdatedAt   string                `json:"updatedAt"`
}

// ExpenseQuery bounds the expense history window. Dates are DD/MM/YYYY.
type ExpenseQuery struct {
	StartDate string
	EndDate   string
}

// WorkdeckClient defines the read-only Workdeck queries the store consumes
type WorkdeckClient interface {
	GetUsers(ctx context.Context) ([]WorkdeckUser, error)
	GetProjects(ctx context.Context) ([]WorkdeckProject, error)
	GetCurrentUser(ctx context.Context) (*WorkdeckUser, error)
	GetTasks(ctx context.Context) ([]WorkdeckTask, error)
	GetExpenses(ctx context.Context, query ExpenseQuery) ([]WorkdeckExpense, error)
}
