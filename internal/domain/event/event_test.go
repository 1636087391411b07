package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"request created", TypeRequestCreated, true},
		{"status changed", TypeStatusChanged, true},
		{"line item deleted", TypeLineItemDeleted, true},
		{"supplier added", TypeSupplierAdded, true},
		{"store hydrated", TypeStoreHydrated, true},
		{"unknown", Type("instance.created"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestType_String(t *testing.T) {
	if got := TypeStatusChanged.String(); got != "request.status_changed" {
		t.Errorf("Type.String() = %v, want %v", got, "request.status_changed")
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now()
	e := NewEvent(TypeRequestCreated, "exp-1", "user-1", nil)

	if e.ID == "" {
		t.Error("NewEvent() should generate an ID")
	}
	if e.CorrelationID != e.ID {
		t.Errorf("CorrelationID = %v, want it to default to ID %v", e.CorrelationID, e.ID)
	}
	if e.RequestID != "exp-1" || e.ActorID != "user-1" {
		t.Errorf("NewEvent() = %+v, wrong request/actor", e)
	}
	if e.Payload == nil {
		t.Error("NewEvent() should never leave Payload nil")
	}
	if e.Timestamp.Before(before) {
		t.Error("Timestamp should be set to now")
	}

	other := NewEvent(TypeRequestCreated, "exp-1", "user-1", nil)
	if other.ID == e.ID {
		t.Error("NewEvent() should generate unique IDs")
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	e := NewEventWithCorrelation(TypeStatusChanged, "exp-1", "mgr", nil, "bulk-42")
	if e.CorrelationID != "bulk-42" {
		t.Errorf("CorrelationID = %v, want bulk-42", e.CorrelationID)
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeStatusChanged, "exp-1", "", map[string]interface{}{"from": "Draft"})
	updated := original.WithPayload("to", "Pending")

	if _, ok := original.Payload["to"]; ok {
		t.Error("WithPayload() must not modify the original payload")
	}
	if got := updated.GetPayloadString("to"); got != "Pending" {
		t.Errorf("GetPayloadString(to) = %v, want Pending", got)
	}
	if got := updated.GetPayloadString("from"); got != "Draft" {
		t.Errorf("GetPayloadString(from) = %v, want Draft", got)
	}
	if updated.ID != original.ID {
		t.Error("WithPayload() should keep the event ID")
	}
}

func TestEvent_PayloadAccessors(t *testing.T) {
	e := NewEvent(TypeRequestUpdated, "exp-1", "", map[string]interface{}{
		"version": 3,
		"asap":    true,
		"purpose": "travel",
		"ratio":   float64(7),
	})

	if got := e.GetPayloadInt("version"); got != 3 {
		t.Errorf("GetPayloadInt(version) = %v, want 3", got)
	}
	if got := e.GetPayloadInt("ratio"); got != 7 {
		t.Errorf("GetPayloadInt(ratio) = %v, want 7", got)
	}
	if !e.GetPayloadBool("asap") {
		t.Error("GetPayloadBool(asap) = false, want true")
	}
	if got := e.GetPayloadString("missing"); got != "" {
		t.Errorf("GetPayloadString(missing) = %q, want empty", got)
	}
	if got := e.GetPayloadString("version"); got != "" {
		t.Errorf("GetPayloadString(version) = %q, want empty for non-string", got)
	}
}
