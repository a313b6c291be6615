package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ReasonNotPendingApproval = "Event is not pending approval."

// Approve moves a pending event to approved and publishes it.
func (e *Event) Approve(adminID primitive.ObjectID, notes string, now time.Time) error {
	if e.ApprovalStatus != ApprovalPending {
		return NewBusinessRule(ReasonNotPendingApproval)
	}
	approvedAt := now
	approvedBy := adminID
	e.ApprovalStatus = ApprovalApproved
	e.ApprovedBy = &approvedBy
	e.ApprovedAt = &approvedAt
	e.ApprovalNotes = strings.TrimSpace(notes)
	e.Status = EventStatusPublished
	e.UpdatedAt = now
	return nil
}

// Reject moves a pending event to rejected and cancels it.
// Participating trucks are left untouched.
func (e *Event) Reject(reason string, now time.Time) error {
	if e.ApprovalStatus != ApprovalPending {
		return NewBusinessRule(ReasonNotPendingApproval)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("rejection reason is required", map[string]string{"reason": "is required"})
	}
	e.ApprovalStatus = ApprovalRejected
	e.RejectionReason = reason
	e.Status = EventStatusCancelled
	e.UpdatedAt = now
	return nil
}
