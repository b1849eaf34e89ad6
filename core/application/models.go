package application

import (
	"time"

	"github.com/pkg/errors"
)

// DocumentKind is a closed set; arbitrary keys are rejected with ErrUnknownDocumentKind.
type DocumentKind string

const (
	DocumentMemorizationCert DocumentKind = "memorization_cert" // certification of Quran memorization
	DocumentIjazah           DocumentKind = "ijazah"
	DocumentPersonalID       DocumentKind = "personal_id"
)

var (
	AllDocumentKinds = []DocumentKind{DocumentMemorizationCert, DocumentIjazah, DocumentPersonalID}

	// RequiredDocumentKinds must be supplied on submission; ijazah is optional.
	RequiredDocumentKinds = []DocumentKind{DocumentMemorizationCert, DocumentPersonalID}

	ErrUnknownDocumentKind = errors.New("unknown document kind")
)

func ParseDocumentKind(s string) (DocumentKind, error) {
	for _, kind := range AllDocumentKinds {
		if string(kind) == s {
			return kind, nil
		}
	}
	return "", errors.Wrap(ErrUnknownDocumentKind, s)
}

type Status string

const (
	StatusPending          Status = "pending"
	StatusDocumentRequired Status = "document_required"
	StatusUnderReview      Status = "under_review"
	StatusApproved         Status = "approved"
	StatusRejected         Status = "rejected"
)

// IsTerminal reports whether no further review transition may change the application.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Application is one teacher's onboarding request. Rejected applications are
// retained for audit; a teacher starts over with a brand-new record.
type Application struct {
	ID                string                  `json:"id"`
	TeacherID         string                  `json:"teacher_id"`
	TeacherName       string                  `json:"teacher_name"`
	Email             string                  `json:"email"`
	Phone             string                  `json:"phone"`
	Bio               string                  `json:"bio"`
	Documents         map[DocumentKind]string `json:"documents"` // kind -> uploaded file reference
	Status            Status                  `json:"status"`
	RequiredDocuments []DocumentKind          `json:"required_documents,omitempty"` // set only while document_required
	RejectionReason   string                  `json:"rejection_reason,omitempty"`   // set only when rejected
	ReviewNotes       string                  `json:"review_notes,omitempty"`
	AppliedAt         time.Time               `json:"applied_at"` // UTC
	ReviewedAt        *time.Time              `json:"reviewed_at,omitempty"`
}

// Document returns the uploaded reference for kind, if any.
func (a Application) Document(kind DocumentKind) string {
	if a.Documents == nil {
		return ""
	}
	return a.Documents[kind]
}

// NewApplication holds a teacher's submission data.
type NewApplication struct {
	TeacherID   string            `json:"teacher_id" validate:"required"`
	TeacherName string            `json:"teacher_name" validate:"required"`
	Email       string            `json:"email" validate:"required,email"`
	Phone       string            `json:"phone" validate:"required"`
	Bio         string            `json:"bio"`
	Documents   map[string]string `json:"documents"`
}

// ReviewAction is an admin decision on an application.
type ReviewAction string

const (
	ActionStartReview      ReviewAction = "start_review"
	ActionApprove          ReviewAction = "approve"
	ActionReject           ReviewAction = "reject"
	ActionRequestDocuments ReviewAction = "request_documents"
)

type ReviewApplication struct {
	Action            ReviewAction `json:"action" validate:"required,oneof=start_review approve reject request_documents"`
	Notes             string       `json:"notes"`
	RejectionReason   string       `json:"rejection_reason" validate:"required_if=Action reject"`
	RequiredDocuments []string     `json:"required_documents"`
}

type ResubmitApplication struct {
	Documents map[string]string `json:"documents" validate:"required"`
}
