package workflow

import (
	"time"

	"github.com/workdeck/spending/internal/domain/entity"
	domainwf "github.com/workdeck/spending/internal/domain/workflow"
)

// Command is one lifecycle action. Commands are the only writers of status and stamp fields.
type Command interface {
	Trigger() domainwf.Trigger
	stamp(req *entity.SpendingRequest, actor string, now time.Time)
}

// SubmitCommand moves a draft into review
type SubmitCommand struct{}

func (SubmitCommand) Trigger() domainwf.Trigger { return domainwf.TriggerSubmit }

func (SubmitCommand) stamp(req *entity.SpendingRequest, _ string, now time.Time) {
	req.SubmittedDate = &now
}

// ApproveCommand approves a pending request
type ApproveCommand struct {
	Comment string `json:"comment,omitempty"`
}

func (ApproveCommand) Trigger() domainwf.Trigger { return domainwf.TriggerApprove }

func (c ApproveCommand) stamp(req *entity.SpendingRequest, actor string, now time.Time) {
	req.ApprovedDate = &now
	req.ApprovedBy = actor
	req.ManagerComment = c.Comment
}

// DenyCommand denies a pending request
type DenyCommand struct {
	Reason  string `json:"reason"`
	Comment string `json:"comment,omitempty"`
}

func (DenyCommand) Trigger() domainwf.Trigger { return domainwf.TriggerDeny }

func (c DenyCommand) stamp(req *entity.SpendingRequest, actor string, now time.Time) {
	req.DeniedDate = &now
	req.DeniedBy = actor
	req.DenialReason = c.Reason
	req.ManagerComment = c.Comment
}

// StartProcessingCommand hands an approved request to the processing track
type StartProcessingCommand struct{}

func (StartProcessingCommand) Trigger() domainwf.Trigger { return domainwf.TriggerStartProcessing }

func (StartProcessingCommand) stamp(req *entity.SpendingRequest, actor string, now time.Time) {
	req.ProcessingStartedDate = &now
	req.ProcessingStartedBy = actor
}

// MarkOrderedCommand records that a purchase has been ordered. All fields are optional.
type MarkOrderedCommand struct {
	PONumber             *string `json:"poNumber,omitempty"`
	ExpectedDeliveryDate *string `json:"expectedDeliveryDate,omitempty"`
	Notes                *string `json:"notes,omitempty"`
}

func (MarkOrderedCommand) Trigger() domainwf.Trigger { return domainwf.TriggerMarkOrdered }

func (c MarkOrderedCommand) stamp(req *entity.SpendingRequest, actor string, now time.Time) {
	req.OrderedDate = &now
	req.OrderedBy = actor
	req.PONumber = c.PONumber
	req.ExpectedDeliveryDate = c.ExpectedDeliveryDate
	req.OrderNotes = c.Notes
}

// MarkReceivedCommand records delivery of an ordered purchase.
// An empty ReceivedDate defaults to the transition date.
type MarkReceivedCommand struct {
	ReceivedDate   string  `json:"receivedDate"`
	ReceivedInFull bool    `json:"receivedInFull"`
	Notes          *string `json:"notes,omitempty"`
}

func (MarkReceivedCommand) Trigger() domainwf.Trigger { return domainwf.TriggerMarkReceived }

func (c MarkReceivedCommand) stamp(req *entity.SpendingRequest, actor string, now time.Time) {
	date := c.ReceivedDate
	if date == "" {
		date = now.Format(DateLayout)
	}
	inFull := c.ReceivedInFull
	req.ReceivedDate = &date
	req.ReceivedInFull = &inFull
	req.ReceivedBy = actor
	req.ReceiveNotes = c.Notes
	req.CompletedDate = &now
}

// MarkFinalizedCommand closes an expense after payment. All fields are optional.
type MarkFinalizedCommand struct {
	PaymentReference *string `json:"paymentReference,omitempty"`
	PaymentDate      *string `json:"paymentDate,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

func (MarkFinalizedCommand) Trigger() domainwf.Trigger { return domainwf.TriggerMarkFinalized }

func (c MarkFinalizedCommand) stamp(req *entity.SpendingRequest, actor string, now time.Time) {
	req.FinalizedDate = &now
	req.FinalizedBy = actor
	req.PaymentReference = c.PaymentReference
	req.PaymentDate = c.PaymentDate
	req.FinalizationNotes = c.Notes
	req.CompletedDate = &now
}

// ReopenCommand returns a denied request to draft so the owner can edit and resubmit it.
// The previous review stamps are cleared; the status history keeps them.
type ReopenCommand struct{}

func (ReopenCommand) Trigger() domainwf.Trigger { return domainwf.TriggerReopen }

func (ReopenCommand) stamp(req *entity.SpendingRequest, _ string, _ time.Time) {
	req.SubmittedDate = nil
	req.DeniedDate = nil
	req.DeniedBy = ""
	req.DenialReason = ""
	req.ManagerComment = ""
}

// DateLayout is the calendar date format used for user-supplied dates
const DateLayout = "2006-01-02"
