package service_test

import (
	"sync"
	"testing"

	"appraisal-backend/internal/authz"
	"appraisal-backend/internal/lifecycle"
	"appraisal-backend/internal/model"
	"appraisal-backend/internal/service"
	"appraisal-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countOffers(t *testing.T, f *fixture, appraisalID, wholesalerID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Offer{}).
		Where("appraisal_id = ? AND wholesaler_id = ?", appraisalID, wholesalerID).
		Count(&n).Error)
	return n
}

func TestOfferLifecycleEndToEnd(t *testing.T) {
	f := newFixture(t)
	dealershipID, manager := f.newDealership(t, "Harbour Motors")
	sales := f.newStaff(t, manager, dealershipID, model.DealerRoleSales)
	w1 := f.grantAccess(t, f.newWholesaler(t, "Trade Cars"), manager, dealershipID)

	created := f.newAppraisal(t, sales, dealershipID, 5000)
	id := created.ID.String()

	invite, err := f.offers.Invite(f.ctx, manager, id, service.InviteRequest{WholesalerIDs: []string{w1.ProfileID.String()}})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{w1.ProfileID}, invite.Invited)

	listed, err := f.offers.ListOffers(f.ctx, manager, id)
	require.NoError(t, err)
	assert.Empty(t, listed.Offers)
	require.Len(t, listed.Invites, 1)
	assert.Equal(t, model.OfferInvited, listed.Invites[0].State)

	own, err := f.offers.MakeOffer(f.ctx, w1, id, service.MakeOfferRequest{Amount: decimal.NewFromInt(6000)})
	require.NoError(t, err)
	assert.Equal(t, string(model.OfferBid), own.State)
	assert.True(t, own.Amount.Decimal.Equal(decimal.NewFromInt(6000)))

	own, err = f.offers.PassOffer(f.ctx, w1, id, service.PassOfferRequest{})
	require.NoError(t, err)
	assert.Equal(t, string(model.OfferPassed), own.State)
	assert.False(t, own.Amount.Valid)

	res, err := f.appraisals.Get(f.ctx, w1, id)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPassed, res.Status)

	own, err = f.offers.MakeOffer(f.ctx, w1, id, service.MakeOfferRequest{Amount: decimal.NewFromInt(7000)})
	require.NoError(t, err)
	assert.Equal(t, string(model.OfferBid), own.State)
	assert.True(t, own.Amount.Decimal.Equal(decimal.NewFromInt(7000)))
	assert.Equal(t, int64(1), countOffers(t, f, created.ID, w1.ProfileID))

	res, err = f.appraisals.Get(f.ctx, w1, id)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusOffered, res.Status)

	winner, err := f.offers.SelectWinner(f.ctx, manager, id, service.SelectWinnerRequest{OfferID: own.ID.String()})
	require.NoError(t, err)
	assert.True(t, winner.IsWinner)
	assert.Equal(t, created.ID, winner.AppraisalID)

	for _, observer := range []authz.Actor{manager, sales, w1} {
		res, err := f.appraisals.Get(f.ctx, observer, id)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StatusComplete, res.Status, observer.Kind.String())
	}

	res, err = f.appraisals.Get(f.ctx, w1, id)
	require.NoError(t, err)
	require.NotNil(t, res.OwnOffer)
	assert.True(t, res.OwnOffer.Won)

	res, err = f.appraisals.Get(f.ctx, manager, id)
	require.NoError(t, err)
	require.NotNil(t, res.WinnerOfferID)
	assert.Equal(t, own.ID, *res.WinnerOfferID)

	// winner selection is terminal
	_, err = f.offers.MakeOffer(f.ctx, w1, id, service.MakeOfferRequest{Amount: decimal.NewFromInt(8000)})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
	_, err = f.offers.SelectWinner(f.ctx, manager, id, service.SelectWinnerRequest{OfferID: own.ID.String()})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	events := f.events.ofType(service.EventWinnerSelected)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Audience, w1.AccountID)
	assert.Contains(t, events[0].Audience, manager.AccountID)
	assert.NotContains(t, events[0].Audience, sales.AccountID)
}

func TestInviteReportsEachIDSeparately(t *testing.T) {
	f := newFixture(t)
	dealershipID, manager := f.newDealership(t, "Harbour Motors")
	granted := f.grantAccess(t, f.newWholesaler(t, "Trade Cars"), manager, dealershipID)
	stranger := f.newWholesaler(t, "Unknown Traders")
	created := f.newAppraisal(t, manager, dealershipID, 5000)
	id := created.ID.String()

	res, err := f.offers.Invite(f.ctx, manager, id, service.InviteRequest{WholesalerIDs: []string{
		granted.ProfileID.String(),
		granted.ProfileID.String(),
		stranger.ProfileID.String(),
		"not-a-uuid",
	}})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{granted.ProfileID}, res.Invited)
	assert.Empty(t, res.AlreadyInvited)
	require.Len(t, res.Rejected, 2)
	assert.Equal(t, stranger.ProfileID.String(), res.Rejected[0].WholesalerID)
	assert.Equal(t, "not-a-uuid", res.Rejected[1].WholesalerID)

	again, err := f.offers.Invite(f.ctx, manager, id, service.InviteRequest{WholesalerIDs: []string{granted.ProfileID.String()}})
	require.NoError(t, err)
	assert.Empty(t, again.Invited)
	assert.Equal(t, []uuid.UUID{granted.ProfileID}, again.AlreadyInvited)
	assert.Equal(t, int64(1), countOffers(t, f, created.ID, granted.ProfileID))

	invited := f.events.ofType(service.EventOfferInvited)
	require.Len(t, invited, 1)
	assert.Contains(t, invited[0].Audience, granted.AccountID)
	assert.NotContains(t, invited[0].Audience, stranger.AccountID)
}

func TestInviteRequiresManagement(t *testing.T) {
	f := newFixture(t)
	dealershipID, manager := f.newDealership(t, "Harbour Motors")
	sales := f.newStaff(t, manager, dealershipID, model.DealerRoleSales)
	w := f.grantAccess(t, f.newWholesaler(t, "Trade Cars"), manager, dealershipID)
	created := f.newAppraisal(t, sales, dealershipID, 5000)

	for _, actor := range []authz.Actor{sales, w} {
		_, err := f.offers.Invite(f.ctx, actor, created.ID.String(), service.InviteRequest{WholesalerIDs: []string{w.ProfileID.String()}})
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	}
}

func TestConcurrentOfferWritesKeepOneRow(t *testing.T) {
	f := newFixture(t)
	dealershipID, manager := f.newDealership(t, "Harbour Motors")
	w := f.grantAccess(t, f.newWholesaler(t, "Trade Cars"), manager, dealershipID)
	created := f.newAppraisal(t, manager, dealershipID, 5000)
	id := created.ID.String()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.offers.Invite(f.ctx, manager, id, service.InviteRequest{WholesalerIDs: []string{w.ProfileID.String()}})
			assert.NoError(t, err)
		}()
		go func(amount int64) {
			defer wg.Done()
			_, err := f.offers.MakeOffer(f.ctx, w, id, service.MakeOfferRequest{Amount: decimal.NewFromInt(amount)})
			assert.NoError(t, err)
		}(int64(6000 + i))
	}
	wg.Wait()

	assert.Equal(t, int64(1), countOffers(t, f, created.ID, w.ProfileID))
	listed, err := f.offers.ListOffers(f.ctx, manager, id)
	require.NoError(t, err)
	require.Len(t, listed.Offers, 1)
	assert.Equal(t, model.OfferBid, listed.Offers[0].State)
}

func TestMakeOfferIsSelfServiceOnly(t *testing.T) {
	f := newFixture(t)
	dealershipID, manager := f.newDealership(t, "Harbour Motors")
	w1 := f.grantAccess(t, f.newWholesaler(t, "Trade Cars"), manager, dealershipID)
	w2 := f.grantAccess(t, f.newWholesaler(t, "Auction Hub"), manager, dealershipID)
	outsider := f.newWholesaler(t, "Stranger Motors")
	created := f.newAppraisal(t, manager, dealershipID, 5000)
	id := created.ID.String()

	_, err := f.offers.MakeOffer(f.ctx, w1, id, service.MakeOfferRequest{
		WholesalerID: w2.ProfileID.String(),
		Amount:       decimal.NewFromInt(6000),
	})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.offers.MakeOffer(f.ctx, manager, id, service.MakeOfferRequest{Amount: decimal.NewFromInt(6000)})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.offers.MakeOffer(f.ctx, outsider, id, service.MakeOfferRequest{Amount: decimal.NewFromInt(6000)})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	for _, amount := range []int64{0, -10} {
		_, err = f.offers.MakeOffer(f.ctx, w1, id, service.MakeOfferRequest{Amount: decimal.NewFromInt(amount)})
		assert.ErrorIs(t, err, apperror.ErrValidation)
	}

	own, err := f.offers.MakeOffer(f.ctx, w1, id, service.MakeOfferRequest{
		WholesalerID: w1.ProfileID.String(),
		Amount:       decimal.NewFromInt(6000),
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.OfferBid), own.State)

	// w2 never sees w1's offer
	res, err := f.appraisals.Get(f.ctx, w2, id)
	require.NoError(t, err)
	assert.Nil(t, res.OwnOffer)
	assert.Equal(t, lifecycle.StatusInvited, res.Status)

	for _, ev := range f.events.ofType(service.EventOfferUpdated) {
		assert.NotContains(t, ev.Audience, w2.AccountID)
	}
}

func TestSelectWinnerRejectsForeignOffer(t *testing.T) {
	f := newFixture(t)
	dealershipID, manager := f.newDealership(t, "Harbour Motors")
	w := f.grantAccess(t, f.newWholesaler(t, "Trade Cars"), manager, dealershipID)
	first := f.newAppraisal(t, manager, dealershipID, 5000)
	second := f.newAppraisal(t, manager, dealershipID, 5000)

	foreign, err := f.offers.MakeOffer(f.ctx, w, second.ID.String(), service.MakeOfferRequest{Amount: decimal.NewFromInt(6000)})
	require.NoError(t, err)

	_, err = f.offers.SelectWinner(f.ctx, manager, first.ID.String(), service.SelectWinnerRequest{OfferID: foreign.ID.String()})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	_, err = f.offers.SelectWinner(f.ctx, manager, first.ID.String(), service.SelectWinnerRequest{OfferID: "garbage"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	res, err := f.appraisals.Get(f.ctx, manager, first.ID.String())
	require.NoError(t, err)
	assert.Nil(t, res.WinnerOfferID)
	assert.Equal(t, lifecycle.StatusActive, res.Status)
}

func TestSelectWinnerRequiresBid(t *testing.T) {
	f := newFixture(t)
	dealershipID, manager := f.newDealership(t, "Harbour Motors")
	sales := f.newStaff(t, manager, dealershipID, model.DealerRoleSales)
	w := f.grantAccess(t, f.newWholesaler(t, "Trade Cars"), manager, dealershipID)
	created := f.newAppraisal(t, manager, dealershipID, 5000)
	id := created.ID.String()

	passed, err := f.offers.PassOffer(f.ctx, w, id, service.PassOfferRequest{})
	require.NoError(t, err)

	_, err = f.offers.SelectWinner(f.ctx, manager, id, service.SelectWinnerRequest{OfferID: passed.ID.String()})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	_, err = f.offers.SelectWinner(f.ctx, sales, id, service.SelectWinnerRequest{OfferID: passed.ID.String()})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestAdjustAmountKeepsOriginalBid(t *testing.T) {
	f := newFixture(t)
	dealershipID, manager := f.newDealership(t, "Harbour Motors")
	sales := f.newStaff(t, manager, dealershipID, model.DealerRoleSales)
	w := f.grantAccess(t, f.newWholesaler(t, "Trade Cars"), manager, dealershipID)
	created := f.newAppraisal(t, manager, dealershipID, 5000)
	id := created.ID.String()

	own, err := f.offers.MakeOffer(f.ctx, w, id, service.MakeOfferRequest{Amount: decimal.NewFromInt(6000)})
	require.NoError(t, err)

	adjusted, err := f.offers.AdjustAmount(f.ctx, manager, own.ID.String(), service.AdjustOfferRequest{
		AdjustedAmount: decimal.NewNullDecimal(decimal.NewFromInt(5800)),
	})
	require.NoError(t, err)
	assert.Equal(t, model.OfferBid, adjusted.State)
	assert.True(t, adjusted.Amount.Decimal.Equal(decimal.NewFromInt(6000)))
	assert.True(t, adjusted.EffectiveAmount.Decimal.Equal(decimal.NewFromInt(5800)))

	_, err = f.offers.AdjustAmount(f.ctx, sales, own.ID.String(), service.AdjustOfferRequest{
		AdjustedAmount: decimal.NewNullDecimal(decimal.NewFromInt(1)),
	})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.offers.AdjustAmount(f.ctx, w, own.ID.String(), service.AdjustOfferRequest{
		AdjustedAmount: decimal.NewNullDecimal(decimal.NewFromInt(1)),
	})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	// adjustments never reach the wholesaler
	res, err := f.appraisals.Get(f.ctx, w, id)
	require.NoError(t, err)
	require.NotNil(t, res.OwnOffer)
	assert.True(t, res.OwnOffer.Amount.Decimal.Equal(decimal.NewFromInt(6000)))

	// bookkeeping continues after completion
	_, err = f.offers.SelectWinner(f.ctx, manager, id, service.SelectWinnerRequest{OfferID: own.ID.String()})
	require.NoError(t, err)
	_, err = f.offers.AdjustAmount(f.ctx, manager, own.ID.String(), service.AdjustOfferRequest{})
	require.NoError(t, err)

	require.NoError(t, f.appraisals.Deactivate(f.ctx, manager, id))
	_, err = f.offers.AdjustAmount(f.ctx, manager, own.ID.String(), service.AdjustOfferRequest{
		AdjustedAmount: decimal.NewNullDecimal(decimal.NewFromInt(1)),
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)
}

func TestAdjustAmountDistinguishesMissingFromFailure(t *testing.T) {
	f := newFixture(t)
	dealershipID, manager := f.newDealership(t, "Harbour Motors")
	_, foreignManager := f.newDealership(t, "Inland Autos")
	w := f.grantAccess(t, f.newWholesaler(t, "Trade Cars"), manager, dealershipID)
	created := f.newAppraisal(t, manager, dealershipID, 5000)

	own, err := f.offers.MakeOffer(f.ctx, w, created.ID.String(), service.MakeOfferRequest{Amount: decimal.NewFromInt(6000)})
	require.NoError(t, err)
	req := service.AdjustOfferRequest{AdjustedAmount: decimal.NewNullDecimal(decimal.NewFromInt(5500))}

	_, err = f.offers.AdjustAmount(f.ctx, foreignManager, own.ID.String(), req)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, f.db.Exec("DROP TABLE damages").Error)
	_, err = f.offers.AdjustAmount(f.ctx, manager, own.ID.String(), req)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, 500, apperror.HTTPStatus(err))
}
