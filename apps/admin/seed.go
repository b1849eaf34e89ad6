package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mutqin/backend/core/application"
	"github.com/mutqin/backend/core/offering"
)

// seed loads one pre-approved teacher with a small catalog so a fresh install
// has something to book against.
func (cli *commandLine) seed(teacherName string) error {
	ctx := context.Background()
	now := time.Now().UTC()
	teacherID := uuid.New().String()

	apps, err := cli.appRepo.ListApplications(ctx)
	if err != nil {
		return err
	}
	app := application.Application{
		ID:          uuid.New().String(),
		TeacherID:   teacherID,
		TeacherName: teacherName,
		Email:       "demo-teacher@mutqin.app",
		Phone:       "+000000000000",
		Bio:         "Demo teacher seeded for local development.",
		Documents: map[application.DocumentKind]string{
			application.DocumentMemorizationCert: "seed://memorization_cert",
			application.DocumentPersonalID:       "seed://personal_id",
		},
		Status:     application.StatusApproved,
		AppliedAt:  now,
		ReviewedAt: &now,
	}
	if err := cli.appRepo.ReplaceAllApplications(ctx, append(apps, app)); err != nil {
		return err
	}

	profiles, err := cli.profileRepo.ListProfiles(ctx)
	if err != nil {
		return err
	}
	profile := application.ProfileSetup{
		TeacherID:     teacherID,
		DisplayName:   teacherName,
		Bio:           app.Bio,
		Languages:     []string{"Arabic", "English"},
		YearsTeaching: 5,
		UpdatedAt:     now,
	}
	if err := cli.profileRepo.ReplaceAllProfiles(ctx, append(profiles, profile)); err != nil {
		return err
	}

	offerings, err := cli.offeringRepo.ListOfferings(ctx)
	if err != nil {
		return err
	}
	rates := map[offering.ServiceType]float64{
		offering.TypeTajweed:      15,
		offering.TypeMemorization: 12,
		offering.TypeKids:         10,
	}
	for typ, rate := range rates {
		offerings = append(offerings, offering.Offering{
			ID:         uuid.New().String(),
			TeacherID:  teacherID,
			Type:       typ,
			HourlyRate: rate,
			Status:     offering.StatusApproved,
			CreatedAt:  now,
			ReviewedAt: &now,
		})
	}
	if err := cli.offeringRepo.ReplaceAllOfferings(ctx, offerings); err != nil {
		return err
	}

	fmt.Printf("seeded teacher %q (%s) with %d approved services\n", teacherName, teacherID, len(rates))
	return nil
}
