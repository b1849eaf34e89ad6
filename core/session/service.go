package session

import (
	"context"
	"math"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mutqin/backend/core"
	"github.com/mutqin/backend/core/offering"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrNotBookable       = errors.New("offering is not bookable")
	ErrIllegalTransition = errors.New("illegal session status transition")
	ErrAlreadyPaid       = errors.New("session is already paid")
)

type (
	Repository interface {
		ListSessions(ctx context.Context) ([]Session, error)
		ReplaceAllSessions(ctx context.Context, sessions []Session) error
	}

	PaymentRepository interface {
		ListPayments(ctx context.Context) ([]Payment, error)
		ReplaceAllPayments(ctx context.Context, payments []Payment) error
	}

	// Gateway captures funds for a checkout attempt. It resolves synchronously:
	// either a transaction id or ErrCardDeclined.
	Gateway interface {
		Charge(ctx context.Context, card CardDetails, amount float64) (transactionID string, err error)
	}

	// MeetingProvider hands out a meeting reference for a paid session; the
	// service only stores the pair, it does not manage the meeting's lifecycle.
	MeetingProvider interface {
		CreateMeeting(ctx context.Context, sessionID string) (id, link string, err error)
	}

	Service struct {
		repo      Repository
		payments  PaymentRepository
		offerings offering.Repository
		gateway   Gateway
		meetings  MeetingProvider
		mailSvc   core.EmailService
	}
)

func NewService(
	repo Repository,
	payments PaymentRepository,
	offerings offering.Repository,
	gateway Gateway,
	meetings MeetingProvider,
	mailSvc core.EmailService,
) *Service {
	return &Service{
		repo:      repo,
		payments:  payments,
		offerings: offerings,
		gateway:   gateway,
		meetings:  meetings,
		mailSvc:   mailSvc,
	}
}

// Book creates a session in status requested against an approved offering,
// snapshotting the offering's effective rate into the price.
func (svc *Service) Book(ctx context.Context, ns NewSession) (Session, error) {
	duration := Duration(ns.Duration)
	if !duration.IsValid() {
		return Session{}, core.NewValidationError(nil,
			core.FieldError{Field: "duration", Error: "duration must be 1, 1.5 or 2 hours"})
	}

	off, err := svc.getOffering(ctx, ns.OfferingID)
	if err != nil {
		return Session{}, err
	}
	if !off.Bookable() {
		return Session{}, ErrNotBookable
	}

	rate := off.EffectiveRate()
	sess := Session{
		ID:          uuid.New().String(),
		LearnerID:   ns.LearnerID,
		TeacherID:   off.TeacherID,
		OfferingID:  off.ID,
		ServiceType: off.Type,
		Date:        ns.Date,
		Time:        ns.Time,
		Duration:    duration,
		HourlyRate:  rate,
		TotalPrice:  math.Round(rate * duration.Hours()),
		Status:      StatusRequested,
		CreatedAt:   time.Now().UTC(),
	}

	sessions, err := svc.repo.ListSessions(ctx)
	if err != nil {
		return Session{}, err
	}
	sessions = append(sessions, sess)
	if err := svc.repo.ReplaceAllSessions(ctx, sessions); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Checkout runs one payment attempt for the session. A declined card records a
// failed payment and leaves the session exactly where it was; the learner
// re-attempts with a fresh Payment record. Success moves the session to paid
// and assigns its meeting reference.
func (svc *Service) Checkout(ctx context.Context, sessionID, learnerID string, card CardDetails) (Session, Payment, error) {
	sessions, err := svc.repo.ListSessions(ctx)
	if err != nil {
		return Session{}, Payment{}, err
	}
	idx := indexOf(sessions, sessionID)
	if idx < 0 {
		return Session{}, Payment{}, ErrNotFound
	}
	sess := sessions[idx]

	if sess.Status != StatusRequested && sess.Status != StatusConfirmed {
		if sess.Status == StatusPaid || sess.Status == StatusInProgress {
			return Session{}, Payment{}, ErrAlreadyPaid
		}
		return Session{}, Payment{}, illegalMove(sess.Status, StatusPaid)
	}

	payments, err := svc.payments.ListPayments(ctx)
	if err != nil {
		return Session{}, Payment{}, err
	}
	for _, p := range payments {
		if p.SessionID == sess.ID && p.Status == PaymentCompleted {
			return Session{}, Payment{}, ErrAlreadyPaid
		}
	}

	pmt := Payment{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		LearnerID: learnerID,
		Amount:    sess.TotalPrice,
		Status:    PaymentPending,
		Method:    "card",
		CreatedAt: time.Now().UTC(),
	}

	txID, chargeErr := svc.gateway.Charge(ctx, card, pmt.Amount)
	if chargeErr != nil {
		if errors.Cause(chargeErr) != ErrCardDeclined {
			return Session{}, Payment{}, errors.Wrap(chargeErr, "charging card")
		}
		pmt.Status = PaymentFailed
		payments = append(payments, pmt)
		if err := svc.payments.ReplaceAllPayments(ctx, payments); err != nil {
			return Session{}, Payment{}, err
		}
		// the session does not move on a failed attempt
		return sess, pmt, ErrCardDeclined
	}

	// Move the session before recording the payment as completed: a failure
	// here leaves no completed payment on record, so the learner can retry.
	sess.Status = StatusPaid
	if svc.meetings != nil {
		id, link, err := svc.meetings.CreateMeeting(ctx, sess.ID)
		if err != nil {
			return Session{}, Payment{}, errors.Wrap(err, "creating meeting")
		}
		sess.MeetingID = id
		sess.MeetingLink = link
	}
	sessions[idx] = sess
	if err := svc.repo.ReplaceAllSessions(ctx, sessions); err != nil {
		return Session{}, Payment{}, err
	}

	now := time.Now().UTC()
	pmt.Status = PaymentCompleted
	pmt.TransactionID = txID
	pmt.CompletedAt = &now
	payments = append(payments, pmt)
	if err := svc.payments.ReplaceAllPayments(ctx, payments); err != nil {
		return Session{}, Payment{}, err
	}
	svc.sendReceiptEmail(sess, pmt, card.ReceiptEmail)
	return sess, pmt, nil
}

// Confirm acknowledges a requested session without payment.
func (svc *Service) Confirm(ctx context.Context, id string) (Session, error) {
	return svc.transition(ctx, id, StatusConfirmed, StatusRequested)
}

// Start marks a paid session as running.
func (svc *Service) Start(ctx context.Context, id string) (Session, error) {
	return svc.transition(ctx, id, StatusInProgress, StatusPaid)
}

// Complete marks a running session as done.
func (svc *Service) Complete(ctx context.Context, id string) (Session, error) {
	return svc.transition(ctx, id, StatusCompleted, StatusInProgress)
}

// Cancel terminates a session before payment; either party may request it.
func (svc *Service) Cancel(ctx context.Context, id string) (Session, error) {
	return svc.transition(ctx, id, StatusCancelled, StatusRequested, StatusConfirmed)
}

// MarkNoShow terminates a confirmed or paid session whose learner never turned up.
func (svc *Service) MarkNoShow(ctx context.Context, id string) (Session, error) {
	return svc.transition(ctx, id, StatusNoShow, StatusConfirmed, StatusPaid)
}

func (svc *Service) transition(ctx context.Context, id string, to Status, from ...Status) (Session, error) {
	sessions, err := svc.repo.ListSessions(ctx)
	if err != nil {
		return Session{}, err
	}
	idx := indexOf(sessions, id)
	if idx < 0 {
		return Session{}, ErrNotFound
	}
	sess := sessions[idx]

	allowed := false
	for _, s := range from {
		if sess.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return Session{}, illegalMove(sess.Status, to)
	}

	now := time.Now().UTC()
	sess.Status = to
	switch to {
	case StatusInProgress:
		sess.StartedAt = &now
	case StatusCompleted:
		sess.CompletedAt = &now
	case StatusCancelled, StatusNoShow:
		sess.CancelledAt = &now
	}

	sessions[idx] = sess
	if err := svc.repo.ReplaceAllSessions(ctx, sessions); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Session, error) {
	return svc.repo.ListSessions(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Session, error) {
	sessions, err := svc.repo.ListSessions(ctx)
	if err != nil {
		return Session{}, err
	}
	if idx := indexOf(sessions, id); idx >= 0 {
		return sessions[idx], nil
	}
	return Session{}, ErrNotFound
}

// QueryByUser returns the sessions the user takes part in, on either side.
func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]Session, error) {
	sessions, err := svc.repo.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	own := make([]Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.LearnerID == userID || sess.TeacherID == userID {
			own = append(own, sess)
		}
	}
	return own, nil
}

func (svc *Service) QueryAllPayments(ctx context.Context) ([]Payment, error) {
	return svc.payments.ListPayments(ctx)
}

func (svc *Service) QueryPaymentsByLearner(ctx context.Context, learnerID string) ([]Payment, error) {
	payments, err := svc.payments.ListPayments(ctx)
	if err != nil {
		return nil, err
	}
	own := make([]Payment, 0, len(payments))
	for _, p := range payments {
		if p.LearnerID == learnerID {
			own = append(own, p)
		}
	}
	return own, nil
}

func (svc *Service) getOffering(ctx context.Context, id string) (offering.Offering, error) {
	offs, err := svc.offerings.ListOfferings(ctx)
	if err != nil {
		return offering.Offering{}, err
	}
	for _, off := range offs {
		if off.ID == id {
			return off, nil
		}
	}
	return offering.Offering{}, offering.ErrNotFound
}

func (svc *Service) sendReceiptEmail(sess Session, pmt Payment, email string) {
	if svc.mailSvc == nil || email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: email}},
		Subject:      "Payment received for your tutoring session",
		TemplateName: "payment_receipt",
		TemplateData: struct {
			Session Session
			Payment Payment
		}{sess, pmt},
	})
}

func indexOf(sessions []Session, id string) int {
	for i, sess := range sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

func illegalMove(from, to Status) error {
	return errors.Wrapf(ErrIllegalTransition, "%s -> %s", from, to)
}
