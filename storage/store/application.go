package storedb

import (
	"context"

	"github.com/mutqin/backend/core"
	"github.com/mutqin/backend/core/application"
)

type applicationRepository struct {
	store *core.Store
}

var _ application.Repository = (*applicationRepository)(nil)

func NewApplicationRepository(store *core.Store) application.Repository {
	return &applicationRepository{store: store}
}

func (repo *applicationRepository) ListApplications(ctx context.Context) ([]application.Application, error) {
	apps := make([]application.Application, 0)
	repo.store.Read(ctx, keyApplications, &apps)
	return apps, nil
}

func (repo *applicationRepository) ReplaceAllApplications(ctx context.Context, apps []application.Application) error {
	return repo.store.Write(ctx, keyApplications, apps)
}

type profileRepository struct {
	store *core.Store
}

var _ application.ProfileRepository = (*profileRepository)(nil)

func NewProfileRepository(store *core.Store) application.ProfileRepository {
	return &profileRepository{store: store}
}

func (repo *profileRepository) ListProfiles(ctx context.Context) ([]application.ProfileSetup, error) {
	profiles := make([]application.ProfileSetup, 0)
	repo.store.Read(ctx, keyProfiles, &profiles)
	return profiles, nil
}

func (repo *profileRepository) ReplaceAllProfiles(ctx context.Context, profiles []application.ProfileSetup) error {
	return repo.store.Write(ctx, keyProfiles, profiles)
}
