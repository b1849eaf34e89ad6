package storedb

import (
	"context"

	"github.com/mutqin/backend/core"
	"github.com/mutqin/backend/core/session"
)

type sessionRepository struct {
	store *core.Store
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(store *core.Store) session.Repository {
	return &sessionRepository{store: store}
}

func (repo *sessionRepository) ListSessions(ctx context.Context) ([]session.Session, error) {
	sessions := make([]session.Session, 0)
	repo.store.Read(ctx, keySessions, &sessions)
	return sessions, nil
}

func (repo *sessionRepository) ReplaceAllSessions(ctx context.Context, sessions []session.Session) error {
	return repo.store.Write(ctx, keySessions, sessions)
}

type paymentRepository struct {
	store *core.Store
}

var _ session.PaymentRepository = (*paymentRepository)(nil)

func NewPaymentRepository(store *core.Store) session.PaymentRepository {
	return &paymentRepository{store: store}
}

func (repo *paymentRepository) ListPayments(ctx context.Context) ([]session.Payment, error) {
	payments := make([]session.Payment, 0)
	repo.store.Read(ctx, keyPayments, &payments)
	return payments, nil
}

func (repo *paymentRepository) ReplaceAllPayments(ctx context.Context, payments []session.Payment) error {
	return repo.store.Write(ctx, keyPayments, payments)
}
