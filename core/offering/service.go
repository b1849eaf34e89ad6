package offering

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mutqin/backend/core"
)

var (
	ErrNotFound          = errors.New("offering not found")
	ErrIllegalTransition = errors.New("illegal offering status transition")
)

type (
	Repository interface {
		ListOfferings(ctx context.Context) ([]Offering, error)
		ReplaceAllOfferings(ctx context.Context, offs []Offering) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Propose creates a fresh pending_approval offering. An earlier proposal of the
// same type by the same teacher is left untouched for audit; listing resolves
// the newest record per type.
func (svc *Service) Propose(ctx context.Context, no NewOffering) (Offering, error) {
	typ, err := ParseServiceType(no.ServiceType)
	if err != nil {
		return Offering{}, core.NewValidationError(err, core.FieldError{Field: "service_type", Error: err.Error()})
	}

	off := Offering{
		ID:         uuid.New().String(),
		TeacherID:  no.TeacherID,
		Type:       typ,
		HourlyRate: no.HourlyRate,
		Status:     StatusPendingApproval,
		CreatedAt:  time.Now().UTC(),
	}

	offs, err := svc.repo.ListOfferings(ctx)
	if err != nil {
		return Offering{}, err
	}
	offs = append(offs, off)
	if err := svc.repo.ReplaceAllOfferings(ctx, offs); err != nil {
		return Offering{}, err
	}
	return off, nil
}

// Review approves (optionally with an admin-adjusted rate) or rejects a
// pending proposal. Both outcomes are terminal for the proposal.
func (svc *Service) Review(ctx context.Context, id string, ro ReviewOffering) (Offering, error) {
	offs, err := svc.repo.ListOfferings(ctx)
	if err != nil {
		return Offering{}, err
	}
	idx := indexOf(offs, id)
	if idx < 0 {
		return Offering{}, ErrNotFound
	}
	off := offs[idx]

	if off.Status != StatusPendingApproval {
		return Offering{}, errors.Wrapf(ErrIllegalTransition, "offering is already %s", off.Status)
	}

	now := time.Now().UTC()
	off.ReviewedAt = &now
	off.AdminNotes = core.CleanString(ro.Notes)
	if ro.Approve {
		off.Status = StatusApproved
		off.AdminRate = ro.AdjustedRate
	} else {
		off.Status = StatusRejected
	}

	offs[idx] = off
	if err := svc.repo.ReplaceAllOfferings(ctx, offs); err != nil {
		return Offering{}, err
	}
	return off, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Offering, error) {
	return svc.repo.ListOfferings(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Offering, error) {
	offs, err := svc.repo.ListOfferings(ctx)
	if err != nil {
		return Offering{}, err
	}
	if idx := indexOf(offs, id); idx >= 0 {
		return offs[idx], nil
	}
	return Offering{}, ErrNotFound
}

// QueryByTeacher returns the teacher's offerings, newest proposal per type
// first so superseded records sort behind their replacement.
func (svc *Service) QueryByTeacher(ctx context.Context, teacherID string) ([]Offering, error) {
	offs, err := svc.repo.ListOfferings(ctx)
	if err != nil {
		return nil, err
	}
	own := make([]Offering, 0, len(AllServiceTypes))
	for _, off := range offs {
		if off.TeacherID == teacherID {
			own = append(own, off)
		}
	}
	sortNewestFirst(own)
	return own, nil
}

// QueryBookable returns the newest approved offering per teacher and type:
// the catalog the booking screens read from.
func (svc *Service) QueryBookable(ctx context.Context) ([]Offering, error) {
	offs, err := svc.repo.ListOfferings(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(offs)

	type slot struct {
		teacherID string
		typ       ServiceType
	}
	seen := make(map[slot]bool)
	bookable := make([]Offering, 0, len(offs))
	for _, off := range offs {
		key := slot{off.TeacherID, off.Type}
		if seen[key] {
			continue
		}
		seen[key] = true
		if off.Bookable() {
			bookable = append(bookable, off)
		}
	}
	return bookable, nil
}

func sortNewestFirst(offs []Offering) {
	sort.SliceStable(offs, func(i, j int) bool { return offs[i].CreatedAt.After(offs[j].CreatedAt) })
}

func indexOf(offs []Offering, id string) int {
	for i, off := range offs {
		if off.ID == id {
			return i
		}
	}
	return -1
}
