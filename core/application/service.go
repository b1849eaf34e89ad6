package application

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mutqin/backend/core"
)

var (
	ErrNotFound          = errors.New("application not found")
	ErrIllegalTransition = errors.New("illegal application status transition")
)

type (
	Repository interface {
		ListApplications(ctx context.Context) ([]Application, error)
		ReplaceAllApplications(ctx context.Context, apps []Application) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

// Submit validates and persists a new application in status pending. Missing
// required documents are rejected here, before anything is written.
func (svc *Service) Submit(ctx context.Context, na NewApplication) (Application, error) {
	docs := make(map[DocumentKind]string, len(na.Documents))
	for key, ref := range na.Documents {
		kind, err := ParseDocumentKind(key)
		if err != nil {
			return Application{}, core.NewValidationError(err, core.FieldError{Field: "documents", Error: err.Error()})
		}
		docs[kind] = core.CleanString(ref)
	}
	if err := checkRequiredDocuments(docs, RequiredDocumentKinds); err != nil {
		return Application{}, err
	}

	app := Application{
		ID:          uuid.New().String(),
		TeacherID:   na.TeacherID,
		TeacherName: core.CleanString(na.TeacherName),
		Email:       core.CleanString(na.Email, true /* lower */),
		Phone:       core.CleanString(na.Phone),
		Bio:         core.CleanString(na.Bio),
		Documents:   docs,
		Status:      StatusPending,
		AppliedAt:   time.Now().UTC(),
	}

	apps, err := svc.repo.ListApplications(ctx)
	if err != nil {
		return Application{}, err
	}
	apps = append(apps, app)
	if err := svc.repo.ReplaceAllApplications(ctx, apps); err != nil {
		return Application{}, err
	}
	return app, nil
}

// Review applies an admin decision. approved and rejected are terminal; illegal
// moves are refused at this layer, not just hidden by the UI.
func (svc *Service) Review(ctx context.Context, id string, ra ReviewApplication) (Application, error) {
	apps, err := svc.repo.ListApplications(ctx)
	if err != nil {
		return Application{}, err
	}
	idx := indexOf(apps, id)
	if idx < 0 {
		return Application{}, ErrNotFound
	}
	app := apps[idx]

	switch ra.Action {
	case ActionStartReview:
		if app.Status != StatusPending {
			return Application{}, illegalMove(app.Status, StatusUnderReview)
		}
		app.Status = StatusUnderReview

	case ActionApprove:
		if app.Status != StatusPending && app.Status != StatusUnderReview {
			return Application{}, illegalMove(app.Status, StatusApproved)
		}
		app.Status = StatusApproved
		app.ReviewNotes = core.CleanString(ra.Notes)
		app.setReviewed()

	case ActionReject:
		if app.Status != StatusPending && app.Status != StatusUnderReview {
			return Application{}, illegalMove(app.Status, StatusRejected)
		}
		reason := core.CleanString(ra.RejectionReason)
		if reason == "" {
			return Application{}, core.NewValidationError(nil,
				core.FieldError{Field: "rejection_reason", Error: "a rejection reason is required"})
		}
		app.Status = StatusRejected
		app.RejectionReason = reason
		app.ReviewNotes = core.CleanString(ra.Notes)
		app.setReviewed()

	case ActionRequestDocuments:
		if app.Status != StatusPending && app.Status != StatusUnderReview {
			return Application{}, illegalMove(app.Status, StatusDocumentRequired)
		}
		kinds, err := parseDocumentKinds(ra.RequiredDocuments)
		if err != nil {
			return Application{}, core.NewValidationError(err, core.FieldError{Field: "required_documents", Error: err.Error()})
		}
		if len(kinds) == 0 {
			return Application{}, core.NewValidationError(nil,
				core.FieldError{Field: "required_documents", Error: "at least one document kind is required"})
		}
		app.Status = StatusDocumentRequired
		app.RequiredDocuments = kinds
		app.ReviewNotes = core.CleanString(ra.Notes)
		app.setReviewed()

	default:
		return Application{}, core.NewValidationError(nil,
			core.FieldError{Field: "action", Error: fmt.Sprintf("unknown review action %q", ra.Action)})
	}

	apps[idx] = app
	if err := svc.repo.ReplaceAllApplications(ctx, apps); err != nil {
		return Application{}, err
	}
	svc.sendDecisionEmail(app)
	return app, nil
}

// Resubmit brings a document_required application back to pending once every
// requested document kind has been supplied.
func (svc *Service) Resubmit(ctx context.Context, id string, rs ResubmitApplication) (Application, error) {
	apps, err := svc.repo.ListApplications(ctx)
	if err != nil {
		return Application{}, err
	}
	idx := indexOf(apps, id)
	if idx < 0 {
		return Application{}, ErrNotFound
	}
	app := apps[idx]

	if app.Status != StatusDocumentRequired {
		return Application{}, illegalMove(app.Status, StatusPending)
	}

	if app.Documents == nil {
		app.Documents = make(map[DocumentKind]string, len(rs.Documents))
	}
	for key, ref := range rs.Documents {
		kind, err := ParseDocumentKind(key)
		if err != nil {
			return Application{}, core.NewValidationError(err, core.FieldError{Field: "documents", Error: err.Error()})
		}
		app.Documents[kind] = core.CleanString(ref)
	}
	if err := checkRequiredDocuments(app.Documents, app.RequiredDocuments); err != nil {
		return Application{}, err
	}

	app.Status = StatusPending
	app.RequiredDocuments = nil

	apps[idx] = app
	if err := svc.repo.ReplaceAllApplications(ctx, apps); err != nil {
		return Application{}, err
	}
	return app, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Application, error) {
	return svc.repo.ListApplications(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Application, error) {
	apps, err := svc.repo.ListApplications(ctx)
	if err != nil {
		return Application{}, err
	}
	if idx := indexOf(apps, id); idx >= 0 {
		return apps[idx], nil
	}
	return Application{}, ErrNotFound
}

func (svc *Service) QueryByTeacher(ctx context.Context, teacherID string) ([]Application, error) {
	apps, err := svc.repo.ListApplications(ctx)
	if err != nil {
		return nil, err
	}
	own := make([]Application, 0, 1)
	for _, app := range apps {
		if app.TeacherID == teacherID {
			own = append(own, app)
		}
	}
	return own, nil
}

// IsApprovedTeacher reports whether the teacher has an approved application on file.
func (svc *Service) IsApprovedTeacher(ctx context.Context, teacherID string) (bool, error) {
	apps, err := svc.repo.ListApplications(ctx)
	if err != nil {
		return false, err
	}
	for _, app := range apps {
		if app.TeacherID == teacherID && app.Status == StatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (svc *Service) sendDecisionEmail(app Application) {
	if svc.mailSvc == nil || app.Email == "" {
		return
	}

	var tmpl, subject string
	switch app.Status {
	case StatusApproved:
		tmpl, subject = "application_approved", "Your teacher application has been approved"
	case StatusRejected:
		tmpl, subject = "application_rejected", "Your teacher application has been declined"
	case StatusDocumentRequired:
		tmpl, subject = "application_documents_requested", "Additional documents are needed for your application"
	default:
		return
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: app.TeacherName, Address: app.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: app,
	})
}

func (a *Application) setReviewed() {
	now := time.Now().UTC()
	a.ReviewedAt = &now
}

func checkRequiredDocuments(docs map[DocumentKind]string, required []DocumentKind) error {
	var flds []core.FieldError
	for _, kind := range required {
		if docs[kind] == "" {
			flds = append(flds, core.FieldError{Field: string(kind), Error: "this document is required"})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("missing required documents"), flds...)
	}
	return nil
}

func parseDocumentKinds(keys []string) ([]DocumentKind, error) {
	kinds := make([]DocumentKind, 0, len(keys))
	for _, key := range keys {
		kind, err := ParseDocumentKind(key)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func indexOf(apps []Application, id string) int {
	for i, app := range apps {
		if app.ID == id {
			return i
		}
	}
	return -1
}

func illegalMove(from, to Status) error {
	return errors.Wrapf(ErrIllegalTransition, "%s -> %s", from, to)
}
