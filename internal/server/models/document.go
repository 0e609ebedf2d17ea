package models

import "time"

type DocumentStatus string

const (
	DocumentPending   DocumentStatus = "pending"
	DocumentUploaded  DocumentStatus = "uploaded"
	DocumentReviewing DocumentStatus = "reviewing"
	DocumentApproved  DocumentStatus = "approved"
	DocumentRejected  DocumentStatus = "rejected"
)

// Valid reports whether s belongs to the closed status vocabulary.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentPending, DocumentUploaded, DocumentReviewing, DocumentApproved, DocumentRejected:
		return true
	}
	return false
}

// Well-known document types referenced by the progression rules.
const (
	DocSignedContract   = "signed_contract"
	DocAdminContract    = "admin_contract"
	DocInvitationLetter = "invitation_letter"
	DocFlightTicket     = "flight_ticket"

	// TranslatedPrefix marks the translation artifacts of step 5.
	TranslatedPrefix = "translated_"
)

// Document is one (user, type) slot. At most one row exists per pair;
// deleting resets the slot to pending instead of removing it.
type Document struct {
	ID              string
	UserID          string
	Type            string
	Label           string
	Status          DocumentStatus
	FileName        *string
	FileURL         *string
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasFile reports whether the slot currently holds a non-empty upload.
func (d *Document) HasFile() bool {
	return d != nil && d.FileURL != nil && *d.FileURL != ""
}

// FileRef is the (name, url) pair returned by the file storage collaborator.
type FileRef struct {
	Name string
	URL  string
}
