package service_test

import (
	"testing"

	"appraisal-backend/internal/model"
	"appraisal-backend/internal/service"
	"appraisal-backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWholesalerFriendRequestFlow(t *testing.T) {
	f := newFixture(t)
	wa := f.newWholesaler(t, "Alpha Wholesale")
	wb := f.newWholesaler(t, "Bravo Wholesale")

	first, err := f.network.SendFriendRequest(f.ctx, wa, service.SendFriendRequestRequest{WholesalerID: wb.ProfileID.String()})
	require.NoError(t, err)
	assert.Equal(t, model.FriendRequestPending, first.Status)
	assert.Equal(t, "Alpha Wholesale", first.SenderName)
	assert.Equal(t, "Bravo Wholesale", first.RecipientWholesalerName)

	_, err = f.network.SendFriendRequest(f.ctx, wa, service.SendFriendRequestRequest{WholesalerID: wb.ProfileID.String()})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	// only the addressed wholesaler may answer
	_, err = f.network.RespondToFriendRequest(f.ctx, wa, first.ID.String(), service.RespondFriendRequestRequest{Decision: service.DecisionAccept})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	accepted, err := f.network.RespondToFriendRequest(f.ctx, wb, first.ID.String(), service.RespondFriendRequestRequest{Decision: service.DecisionAccept})
	require.NoError(t, err)
	assert.Equal(t, model.FriendRequestAccepted, accepted.Status)
	assert.NotNil(t, accepted.RespondedAt)

	friendsOfA, err := f.network.ListFriends(f.ctx, wa)
	require.NoError(t, err)
	require.Len(t, friendsOfA, 1)
	assert.Equal(t, wb.ProfileID, friendsOfA[0].ID)

	friendsOfB, err := f.network.ListFriends(f.ctx, wb)
	require.NoError(t, err)
	require.Len(t, friendsOfB, 1)
	assert.Equal(t, wa.ProfileID, friendsOfB[0].ID)

	_, err = f.network.RespondToFriendRequest(f.ctx, wb, first.ID.String(), service.RespondFriendRequestRequest{Decision: service.DecisionReject})
	assert.ErrorIs(t, err, apperror.ErrInvalidState)

	// no longer pending, so an identical request is allowed again
	third, err := f.network.SendFriendRequest(f.ctx, wa, service.SendFriendRequestRequest{WholesalerID: wb.ProfileID.String()})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestFriendRequestRecipientRules(t *testing.T) {
	f := newFixture(t)
	dealershipID, _ := f.newDealership(t, "Harbour Motors")
	w := f.newWholesaler(t, "Alpha Wholesale")

	tests := []struct {
		name string
		req  service.SendFriendRequestRequest
		want error
	}{
		{"neither recipient", service.SendFriendRequestRequest{}, apperror.ErrInvalidState},
		{"both recipients", service.SendFriendRequestRequest{DealershipID: dealershipID.String(), WholesalerID: w.ProfileID.String()}, apperror.ErrInvalidState},
		{"self", service.SendFriendRequestRequest{WholesalerID: w.ProfileID.String()}, apperror.ErrInvalidState},
		{"unknown dealership", service.SendFriendRequestRequest{DealershipID: "5b1c3c7a-4a38-4d1e-9a47-6f5a3f3c8e11"}, apperror.ErrNotFound},
		{"malformed wholesaler", service.SendFriendRequestRequest{WholesalerID: "abc"}, apperror.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.network.SendFriendRequest(f.ctx, w, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDealershipFriendRequestGrantsAccess(t *testing.T) {
	f := newFixture(t)
	dealershipID, manager := f.newDealership(t, "Harbour Motors")
	sales := f.newStaff(t, manager, dealershipID, model.DealerRoleSales)
	_, otherManager := f.newDealership(t, "Inland Autos")
	w := f.newWholesaler(t, "Alpha Wholesale")

	_, err := f.network.SendFriendRequest(f.ctx, manager, service.SendFriendRequestRequest{DealershipID: dealershipID.String()})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	request, err := f.network.SendFriendRequest(f.ctx, w, service.SendFriendRequestRequest{DealershipID: dealershipID.String()})
	require.NoError(t, err)
	assert.Equal(t, "Harbour Motors", request.RecipientDealershipName)

	received, err := f.network.ListFriendRequests(f.ctx, manager, service.BoxReceived)
	require.NoError(t, err)
	require.Len(t, received, 1)
	sent, err := f.network.ListFriendRequests(f.ctx, w, service.BoxSent)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	none, err := f.network.ListFriendRequests(f.ctx, otherManager, service.BoxReceived)
	require.NoError(t, err)
	assert.Empty(t, none)
	_, err = f.network.ListFriendRequests(f.ctx, manager, "archive")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	accept := service.RespondFriendRequestRequest{Decision: service.DecisionAccept}
	_, err = f.network.RespondToFriendRequest(f.ctx, otherManager, request.ID.String(), accept)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.network.RespondToFriendRequest(f.ctx, sales, request.ID.String(), accept)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.network.RespondToFriendRequest(f.ctx, manager, request.ID.String(), accept)
	require.NoError(t, err)

	w = f.refresh(t, w)
	assert.Contains(t, w.DealershipIDs, dealershipID)

	granted, err := f.dealers.ListDealershipWholesalers(f.ctx, manager, dealershipID.String())
	require.NoError(t, err)
	require.Len(t, granted, 1)
	assert.Equal(t, w.ProfileID, granted[0].ID)

	logs, _, err := f.audits.GetAuditLogs(f.ctx, manager, dealershipID.String(), 1, 10)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, model.ActionAcceptFriendRequest, logs[0].Action)
}

func TestRejectedDealershipRequestHasNoSideEffect(t *testing.T) {
	f := newFixture(t)
	dealershipID, manager := f.newDealership(t, "Harbour Motors")
	w := f.newWholesaler(t, "Alpha Wholesale")

	request, err := f.network.SendFriendRequest(f.ctx, w, service.SendFriendRequestRequest{DealershipID: dealershipID.String()})
	require.NoError(t, err)
	rejected, err := f.network.RespondToFriendRequest(f.ctx, manager, request.ID.String(), service.RespondFriendRequestRequest{Decision: service.DecisionReject})
	require.NoError(t, err)
	assert.Equal(t, model.FriendRequestRejected, rejected.Status)

	w = f.refresh(t, w)
	assert.Empty(t, w.DealershipIDs)

	created := f.newAppraisal(t, manager, dealershipID, 5000)
	_, err = f.appraisals.Get(f.ctx, w, created.ID.String())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	res, err := f.offers.Invite(f.ctx, manager, created.ID.String(), service.InviteRequest{WholesalerIDs: []string{w.ProfileID.String()}})
	require.NoError(t, err)
	assert.Empty(t, res.Invited)
	assert.Len(t, res.Rejected, 1)
}
