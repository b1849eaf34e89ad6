package application

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mutqin/backend/core"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileSetup is a teacher's public profile record, filled in after approval.
// One record per teacher; saving again overwrites the previous one.
type ProfileSetup struct {
	TeacherID     string    `json:"teacher_id"`
	DisplayName   string    `json:"display_name"`
	Bio           string    `json:"bio"`
	Languages     []string  `json:"languages,omitempty"`
	YearsTeaching int       `json:"years_teaching"`
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

type UpdateProfileSetup struct {
	DisplayName   string   `json:"display_name" validate:"required"`
	Bio           string   `json:"bio"`
	Languages     []string `json:"languages"`
	YearsTeaching int      `json:"years_teaching" validate:"gte=0"`
}

type ProfileRepository interface {
	ListProfiles(ctx context.Context) ([]ProfileSetup, error)
	ReplaceAllProfiles(ctx context.Context, profiles []ProfileSetup) error
}

type ProfileService struct {
	repo ProfileRepository
}

func NewProfileService(repo ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

func (svc *ProfileService) Save(ctx context.Context, teacherID string, up UpdateProfileSetup) (ProfileSetup, error) {
	profile := ProfileSetup{
		TeacherID:     teacherID,
		DisplayName:   core.CleanString(up.DisplayName),
		Bio:           core.CleanString(up.Bio),
		Languages:     up.Languages,
		YearsTeaching: up.YearsTeaching,
		UpdatedAt:     time.Now().UTC(),
	}

	profiles, err := svc.repo.ListProfiles(ctx)
	if err != nil {
		return ProfileSetup{}, err
	}
	replaced := false
	for i, p := range profiles {
		if p.TeacherID == teacherID {
			profiles[i] = profile
			replaced = true
			break
		}
	}
	if !replaced {
		profiles = append(profiles, profile)
	}
	if err := svc.repo.ReplaceAllProfiles(ctx, profiles); err != nil {
		return ProfileSetup{}, err
	}
	return profile, nil
}

func (svc *ProfileService) GetByTeacher(ctx context.Context, teacherID string) (ProfileSetup, error) {
	profiles, err := svc.repo.ListProfiles(ctx)
	if err != nil {
		return ProfileSetup{}, err
	}
	for _, p := range profiles {
		if p.TeacherID == teacherID {
			return p, nil
		}
	}
	return ProfileSetup{}, ErrProfileNotFound
}
