package offering_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/mutqin/backend/core"
	"github.com/mutqin/backend/core/offering"
	inmemdb "github.com/mutqin/backend/storage/inmem"
	storedb "github.com/mutqin/backend/storage/store"
)

func setup(t *testing.T) *offering.Service {
	t.Helper()
	store := core.NewStore(inmemdb.Open(), nil, nil)
	return offering.NewService(storedb.NewOfferingRepository(store))
}

func propose(t *testing.T, svc *offering.Service, teacherID string, typ offering.ServiceType, rate float64) offering.Offering {
	t.Helper()
	off, err := svc.Propose(context.Background(), offering.NewOffering{
		TeacherID:   teacherID,
		ServiceType: string(typ),
		HourlyRate:  rate,
	})
	if err != nil {
		t.Fatalf("propose(): %v", err)
	}
	return off
}

func fPtr(f float64) *float64 { return &f }

func TestService_Propose(t *testing.T) {
	svc := setup(t)

	off := propose(t, svc, "t1", offering.TypeTajweed, 15)
	assert.NotEmpty(t, off.ID)
	assert.Equal(t, offering.StatusPendingApproval, off.Status)
	assert.False(t, off.Bookable())
	assert.Equal(t, 15.0, off.EffectiveRate())
}

func TestService_Propose_unknownServiceType(t *testing.T) {
	svc := setup(t)

	_, err := svc.Propose(context.Background(), offering.NewOffering{
		TeacherID:   "t1",
		ServiceType: "chess_lessons",
		HourlyRate:  15,
	})
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestService_Review_approve(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	off := propose(t, svc, "t1", offering.TypeTajweed, 15)
	off, err := svc.Review(ctx, off.ID, offering.ReviewOffering{Approve: true})
	assert.NoError(t, err)
	assert.Equal(t, offering.StatusApproved, off.Status)
	assert.True(t, off.Bookable())
	assert.Equal(t, 15.0, off.EffectiveRate())
	assert.NotNil(t, off.ReviewedAt)
}

func TestService_Review_approveWithAdjustedRate(t *testing.T) {
	svc := setup(t)

	off := propose(t, svc, "t1", offering.TypeMemorization, 20)
	off, err := svc.Review(context.Background(), off.ID, offering.ReviewOffering{
		Approve:      true,
		AdjustedRate: fPtr(17.5),
		Notes:        "aligned with the memorization band",
	})
	assert.NoError(t, err)
	assert.Equal(t, offering.StatusApproved, off.Status)
	assert.Equal(t, 20.0, off.HourlyRate) // the proposal is kept as-is
	assert.Equal(t, 17.5, off.EffectiveRate())
}

func TestService_Review_reject(t *testing.T) {
	svc := setup(t)

	off := propose(t, svc, "t1", offering.TypeKids, 50)
	off, err := svc.Review(context.Background(), off.ID, offering.ReviewOffering{Notes: "rate out of band"})
	assert.NoError(t, err)
	assert.Equal(t, offering.StatusRejected, off.Status)
	assert.False(t, off.Bookable())
}

func TestService_Review_decisionsAreTerminal(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	approved := propose(t, svc, "t1", offering.TypeTajweed, 15)
	_, err := svc.Review(ctx, approved.ID, offering.ReviewOffering{Approve: true})
	assert.NoError(t, err)

	rejected := propose(t, svc, "t1", offering.TypeKids, 50)
	_, err = svc.Review(ctx, rejected.ID, offering.ReviewOffering{})
	assert.NoError(t, err)

	for _, id := range []string{approved.ID, rejected.ID} {
		_, err := svc.Review(ctx, id, offering.ReviewOffering{Approve: true})
		assert.Equal(t, offering.ErrIllegalTransition, errors.Cause(err))
	}
}

func TestService_Review_notFound(t *testing.T) {
	svc := setup(t)

	_, err := svc.Review(context.Background(), "nope", offering.ReviewOffering{Approve: true})
	assert.Equal(t, offering.ErrNotFound, err)
}

func TestService_QueryBookable_newestProposalSupersedes(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	v1 := propose(t, svc, "t1", offering.TypeTajweed, 15)
	_, err := svc.Review(ctx, v1.ID, offering.ReviewOffering{Approve: true})
	assert.NoError(t, err)

	// another teacher's catalog is unaffected throughout
	other := propose(t, svc, "t2", offering.TypeTajweed, 18)
	_, err = svc.Review(ctx, other.ID, offering.ReviewOffering{Approve: true})
	assert.NoError(t, err)

	bookable, err := svc.QueryBookable(ctx)
	assert.NoError(t, err)
	assert.Len(t, bookable, 2)

	// re-proposing the same slot takes it off the catalog until reviewed
	time.Sleep(5 * time.Millisecond) // distinct CreatedAt
	v2 := propose(t, svc, "t1", offering.TypeTajweed, 25)

	bookable, err = svc.QueryBookable(ctx)
	assert.NoError(t, err)
	if assert.Len(t, bookable, 1) {
		assert.Equal(t, other.ID, bookable[0].ID)
	}

	v2, err = svc.Review(ctx, v2.ID, offering.ReviewOffering{Approve: true, AdjustedRate: fPtr(22)})
	assert.NoError(t, err)

	bookable, err = svc.QueryBookable(ctx)
	assert.NoError(t, err)
	if assert.Len(t, bookable, 2) {
		ids := []string{bookable[0].ID, bookable[1].ID}
		assert.Contains(t, ids, v2.ID)
		assert.NotContains(t, ids, v1.ID)
	}
}

func TestService_QueryByTeacher(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	first := propose(t, svc, "t1", offering.TypeTajweed, 15)
	time.Sleep(5 * time.Millisecond)
	second := propose(t, svc, "t1", offering.TypeMemorization, 12)
	propose(t, svc, "t2", offering.TypeTajweed, 18)

	own, err := svc.QueryByTeacher(ctx, "t1")
	assert.NoError(t, err)
	if assert.Len(t, own, 2) {
		// newest first
		assert.Equal(t, second.ID, own[0].ID)
		assert.Equal(t, first.ID, own[1].ID)
	}
}
