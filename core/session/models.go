package session

import (
	"time"

	"github.com/pkg/errors"

	"github.com/mutqin/backend/core/offering"
)

// Duration is the length of a tutoring session in hours; only three values are
// offered by the booking screens.
type Duration float64

const (
	OneHour   Duration = 1
	NinetyMin Duration = 1.5
	TwoHours  Duration = 2
)

var AllDurations = []Duration{OneHour, NinetyMin, TwoHours}

func (d Duration) IsValid() bool {
	for _, v := range AllDurations {
		if d == v {
			return true
		}
	}
	return false
}

func (d Duration) Hours() float64 { return float64(d) }

type Status string

const (
	StatusRequested  Status = "requested"
	StatusConfirmed  Status = "confirmed"
	StatusPaid       Status = "paid"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// IsTerminal reports whether no transition may change the session any further.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Session is one booking between a learner and a teacher. HourlyRate and
// TotalPrice are snapshots taken at booking time; later rate changes on the
// offering never move a confirmed price.
type Session struct {
	ID          string               `json:"id"`
	LearnerID   string               `json:"learner_id"`
	TeacherID   string               `json:"teacher_id"`
	OfferingID  string               `json:"offering_id"`
	ServiceType offering.ServiceType `json:"service_type"`
	Date        string               `json:"date"` // 2006-01-02
	Time        string               `json:"time"` // 15:04
	Duration    Duration             `json:"duration"`
	HourlyRate  float64              `json:"hourly_rate"`
	TotalPrice  float64              `json:"total_price"`
	Status      Status               `json:"status"`
	MeetingID   string               `json:"meeting_id,omitempty"`   // set only once paid
	MeetingLink string               `json:"meeting_link,omitempty"` // set only once paid
	CreatedAt   time.Time            `json:"created_at"` // UTC
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	CancelledAt *time.Time           `json:"cancelled_at,omitempty"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment is one checkout attempt tied 1:1 to a session. Failed attempts are
// retained for audit; at most one payment per session ever completes.
type Payment struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"session_id"`
	LearnerID     string        `json:"learner_id"`
	Amount        float64       `json:"amount"`
	Status        PaymentStatus `json:"status"`
	Method        string        `json:"payment_method"`
	TransactionID string        `json:"transaction_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"` // UTC
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

type NewSession struct {
	LearnerID  string  `json:"learner_id" validate:"required"`
	OfferingID string  `json:"offering_id" validate:"required"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time       string  `json:"time" validate:"required,datetime=15:04"`
	Duration   float64 `json:"duration" validate:"required"`
}

// CardDetails is the simulated checkout form.
type CardDetails struct {
	Number       string `json:"card_number" validate:"required,min=12"`
	Holder       string `json:"card_holder" validate:"required"`
	Expiry       string `json:"expiry" validate:"required,datetime=01/06"`
	CVC          string `json:"cvc" validate:"required,len=3,numeric"`
	ReceiptEmail string `json:"receipt_email" validate:"omitempty,email"`
}

var (
	// ErrCardDeclined is returned by a Gateway when the charge is refused.
	ErrCardDeclined = errors.New("card declined")
)
