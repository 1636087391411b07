package entity

// Project is the root of the allocation hierarchy
type Project struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Order int    `json:"order"`
}

// Activity belongs to a project
type Activity struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Order     int    `json:"order"`
}

// Task belongs to an activity
type Task struct {
	ID         string `json:"id"`
	ActivityID string `json:"activityId"`
	Code       string `json:"code,omitempty"`
	Name       string `json:"name"`
	Order      int    `json:"order"`
}

// User is the minimal identity used for display and audit
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CurrentUser is the acting user together with their approval and processing rights
type CurrentUser struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	IsManager       bool     `json:"isManager"`
	IsExpenseAdmin  bool     `json:"isExpenseAdmin"`
	IsPurchaseAdmin bool     `json:"isPurchaseAdmin"`
	DirectReports   []string `json:"directReports"`
}

// AnonymousUser is the degraded profile used when the current user cannot be loaded
func AnonymousUser() CurrentUser {
	return CurrentUser{
		ID:            "anonymous",
		Name:          "Anonymous",
		DirectReports: []string{},
	}
}

// Manages reports whether userID is one of the user's direct reports
func (u CurrentUser) Manages(userID string) bool {
	for _, id := range u.DirectReports {
		if id == userID {
			return true
		}
	}
	return false
}

// CanProcess reports whether the user may drive the processing track for t
func (u CurrentUser) CanProcess(t SpendingType) bool {
	switch t {
	case SpendingTypeExpense:
		return u.IsExpenseAdmin
	case SpendingTypePurchase:
		return u.IsPurchaseAdmin
	}
	return false
}

// ReferenceData groups the read-only lookup tables loaded at startup
type ReferenceData struct {
	Users      []User     `json:"users"`
	Projects   []Project  `json:"projects"`
	Activities []Activity `json:"activities"`
	Tasks      []Task     `json:"tasks"`
}
