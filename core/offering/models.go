package offering

import (
	"time"

	"github.com/pkg/errors"
)

// ServiceType is a closed set of tutoring categories.
type ServiceType string

const (
	TypeTajweed      ServiceType = "tajweed_correction"
	TypeMemorization ServiceType = "memorization"
	TypeRecitation   ServiceType = "recitation"
	TypeIjazahPrep   ServiceType = "ijazah_preparation"
	TypeKids         ServiceType = "kids_tutoring"
)

var (
	AllServiceTypes = []ServiceType{TypeTajweed, TypeMemorization, TypeRecitation, TypeIjazahPrep, TypeKids}

	ErrUnknownServiceType = errors.New("unknown service type")
)

func ParseServiceType(s string) (ServiceType, error) {
	for _, typ := range AllServiceTypes {
		if string(typ) == s {
			return typ, nil
		}
	}
	return "", errors.Wrap(ErrUnknownServiceType, s)
}

type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

// Offering is one priced service proposal by one teacher. A rejected proposal
// is terminal; proposing the same type again creates a fresh entity that
// supersedes this one.
type Offering struct {
	ID         string      `json:"id"`
	TeacherID  string      `json:"teacher_id"`
	Type       ServiceType `json:"service_type"`
	HourlyRate float64     `json:"hourly_rate"` // teacher-proposed
	Status     Status      `json:"status"`
	AdminRate  *float64    `json:"admin_rate,omitempty"` // admin-adjusted; supersedes HourlyRate when set
	AdminNotes string      `json:"admin_notes,omitempty"`
	CreatedAt  time.Time   `json:"created_at"` // UTC
	ReviewedAt *time.Time  `json:"reviewed_at,omitempty"`
}

// EffectiveRate is the billable hourly rate: the admin-adjusted rate when one
// was ever set, the teacher's proposal otherwise. All pricing goes through here.
func (o Offering) EffectiveRate() float64 {
	if o.AdminRate != nil {
		return *o.AdminRate
	}
	return o.HourlyRate
}

// Bookable reports whether learners may book this offering.
func (o Offering) Bookable() bool { return o.Status == StatusApproved }

type NewOffering struct {
	TeacherID   string  `json:"teacher_id" validate:"required"`
	ServiceType string  `json:"service_type" validate:"required"`
	HourlyRate  float64 `json:"hourly_rate" validate:"required,gt=0"`
}

type ReviewOffering struct {
	Approve      bool     `json:"approve"`
	AdjustedRate *float64 `json:"adjusted_rate,omitempty" validate:"omitempty,gt=0"`
	Notes        string   `json:"notes"`
}
