package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	dealership := uuid.New()
	other := uuid.New()
	management := Actor{AccountID: uuid.New(), Kind: KindManagement, ProfileID: uuid.New(), DealershipIDs: []uuid.UUID{dealership}}
	sales := Actor{AccountID: uuid.New(), Kind: KindSales, ProfileID: uuid.New(), DealershipIDs: []uuid.UUID{dealership}}
	wholesaler := Actor{AccountID: uuid.New(), Kind: KindWholesaler, ProfileID: uuid.New(), DealershipIDs: []uuid.UUID{dealership}}
	stranger := Actor{AccountID: uuid.New(), Kind: KindWholesaler, ProfileID: uuid.New()}

	own := Resource{DealershipID: dealership}
	foreign := Resource{DealershipID: other}

	tests := []struct {
		name   string
		actor  Actor
		action Action
		res    Resource
		want   bool
	}{
		{"anonymous never passes", Anonymous, ViewAppraisal, own, false},
		{"management views own dealership", management, ViewAppraisal, own, true},
		{"management blocked across tenancy", management, ViewAppraisal, foreign, false},
		{"sales creates", sales, CreateAppraisal, own, true},
		{"sales cannot update", sales, UpdateAppraisal, own, false},
		{"sales cannot invite", sales, InviteWholesalers, own, false},
		{"management selects winner", management, SelectWinner, own, true},
		{"wholesaler cannot create", wholesaler, CreateAppraisal, own, false},
		{"granted wholesaler views", wholesaler, ViewAppraisal, own, true},
		{"invited wholesaler views without grant", stranger, ViewAppraisal, Resource{DealershipID: dealership, Invited: true}, true},
		{"ungranted wholesaler is blind", stranger, ViewAppraisal, own, false},
		{"wholesaler responds for self", wholesaler, RespondToAppraisal, Resource{DealershipID: dealership, OwnerAccountID: wholesaler.AccountID}, true},
		{"wholesaler cannot respond for another", wholesaler, RespondToAppraisal, Resource{DealershipID: dealership, OwnerAccountID: stranger.AccountID, Invited: true}, false},
		{"management cannot respond", management, RespondToAppraisal, Resource{DealershipID: dealership, OwnerAccountID: management.AccountID}, false},
		{"management manages colleague", management, ManageDealer, Resource{TargetDealershipIDs: []uuid.UUID{other, dealership}}, true},
		{"management cannot manage outsider", management, ManageDealer, Resource{TargetDealershipIDs: []uuid.UUID{other}}, false},
		{"wholesaler edits own profile", wholesaler, EditWholesalerProfile, Resource{OwnerAccountID: wholesaler.AccountID}, true},
		{"management cannot edit wholesaler", management, EditWholesalerProfile, Resource{OwnerAccountID: wholesaler.AccountID}, false},
		{"unknown action denied", management, Action(999), own, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.actor, tt.action, tt.res))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "management", KindManagement.String())
	assert.Equal(t, "wholesaler", KindWholesaler.String())
	assert.Equal(t, "none", Kind(42).String())
}

func TestNilDealershipNeverMatches(t *testing.T) {
	a := Actor{AccountID: uuid.New(), Kind: KindManagement, DealershipIDs: []uuid.UUID{uuid.Nil}}
	assert.False(t, BelongsToSameDealership(a, uuid.Nil))
	assert.False(t, OwnsProfile(a, uuid.Nil))
}
