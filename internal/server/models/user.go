// Package models defines server-side data models persisted in the database.
package models

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// ApprovalStatus is the aggregate status of the user's current step.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// FirstStep is where every user starts.
const FirstStep = 1

// User is a portal account together with its pipeline position.
// OnboardingStep and StepApprovalStatus are written only by the
// progression services.
type User struct {
	ID                 string
	Email              string
	Phone              *string
	Role               Role
	OnboardingStep     int
	StepApprovalStatus ApprovalStatus
	// SelectedProgram is opaque JSON chosen during program selection.
	SelectedProgram  json.RawMessage
	VisaTrackingCode *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
