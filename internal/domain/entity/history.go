package entity

import "time"

// StatusChange is one recorded lifecycle transition of a request
type StatusChange struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"requestId"`
	FromStatus Status    `json:"fromStatus"`
	ToStatus   Status    `json:"toStatus"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actorId"`
	Comment    string    `json:"comment,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
