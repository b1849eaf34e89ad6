package storedb

import (
	"context"

	"github.com/mutqin/backend/core"
	"github.com/mutqin/backend/core/offering"
)

type offeringRepository struct {
	store *core.Store
}

var _ offering.Repository = (*offeringRepository)(nil)

func NewOfferingRepository(store *core.Store) offering.Repository {
	return &offeringRepository{store: store}
}

func (repo *offeringRepository) ListOfferings(ctx context.Context) ([]offering.Offering, error) {
	offs := make([]offering.Offering, 0)
	repo.store.Read(ctx, keyOfferings, &offs)
	return offs, nil
}

func (repo *offeringRepository) ReplaceAllOfferings(ctx context.Context, offs []offering.Offering) error {
	return repo.store.Write(ctx, keyOfferings, offs)
}
