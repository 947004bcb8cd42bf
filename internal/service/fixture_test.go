package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"appraisal-backend/internal/authz"
	"appraisal-backend/internal/config"
	"appraisal-backend/internal/database"
	"appraisal-backend/internal/service"
	"appraisal-backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type publishedEvent struct {
	Event    websocket.Event
	Audience []uuid.UUID
}

type eventRecorder struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *eventRecorder) Publish(ev websocket.Event, audience ...uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{Event: ev, Audience: audience})
}

func (r *eventRecorder) ofType(eventType string) []publishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []publishedEvent
	for _, e := range r.events {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	ctx         context.Context
	db          *gorm.DB
	events      *eventRecorder
	accounts    service.AccountService
	dealers     service.DealerService
	wholesalers service.WholesalerService
	appraisals  service.AppraisalService
	offers      service.OfferService
	network     service.NetworkService
	reports     service.ReportService
	audits      service.AuditService
	seq         int
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewConnection(config.DBConfig{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every :memory: connection is a separate database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	events := &eventRecorder{}
	services := service.New(db, service.TokenIssuer{Secret: []byte("test-secret"), TTL: time.Hour}, events)

	return &fixture{
		ctx:         context.Background(),
		db:          db,
		events:      events,
		accounts:    services.Accounts,
		dealers:     services.Dealers,
		wholesalers: services.Wholesalers,
		appraisals:  services.Appraisals,
		offers:      services.Offers,
		network:     services.Network,
		reports:     services.Reports,
		audits:      services.Audits,
	}
}

func (f *fixture) accountRequest(prefix string) service.RegisterAccountRequest {
	f.seq++
	username := fmt.Sprintf("%s%d", prefix, f.seq)
	return service.RegisterAccountRequest{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "password123",
		FirstName: prefix,
		LastName:  "Tester",
	}
}

func (f *fixture) resolve(t *testing.T, accountID uuid.UUID) authz.Actor {
	t.Helper()
	actor, err := f.accounts.ResolveActor(f.ctx, accountID)
	require.NoError(t, err)
	return actor
}

func (f *fixture) refresh(t *testing.T, actor authz.Actor) authz.Actor {
	t.Helper()
	return f.resolve(t, actor.AccountID)
}

// newDealership registers a manager and the dealership it runs.
func (f *fixture) newDealership(t *testing.T, name string) (uuid.UUID, authz.Actor) {
	t.Helper()
	me, err := f.accounts.RegisterDealer(f.ctx, f.accountRequest("manager"))
	require.NoError(t, err)
	manager := f.resolve(t, me.AccountID)

	dealership, err := f.dealers.CreateDealership(f.ctx, manager, service.CreateDealershipRequest{
		Name:   name,
		Suburb: "Parramatta",
		State:  "NSW",
	})
	require.NoError(t, err)
	return dealership.ID, f.refresh(t, manager)
}

func (f *fixture) newStaff(t *testing.T, manager authz.Actor, dealershipID uuid.UUID, role string) authz.Actor {
	t.Helper()
	staff, err := f.dealers.CreateStaff(f.ctx, manager, service.CreateStaffRequest{
		RegisterAccountRequest: f.accountRequest(role),
		DealershipID:           dealershipID.String(),
		Role:                   role,
	})
	require.NoError(t, err)
	return f.resolve(t, staff.AccountID)
}

func (f *fixture) newWholesaler(t *testing.T, name string) authz.Actor {
	t.Helper()
	me, err := f.accounts.RegisterWholesaler(f.ctx, service.RegisterWholesalerRequest{
		RegisterAccountRequest: f.accountRequest("wholesaler"),
		WholesalerName:         name,
		State:                  "VIC",
	})
	require.NoError(t, err)
	return f.resolve(t, me.AccountID)
}

// grantAccess runs the friend request flow between a wholesaler and a dealership.
func (f *fixture) grantAccess(t *testing.T, wholesaler, manager authz.Actor, dealershipID uuid.UUID) authz.Actor {
	t.Helper()
	request, err := f.network.SendFriendRequest(f.ctx, wholesaler, service.SendFriendRequestRequest{
		DealershipID: dealershipID.String(),
	})
	require.NoError(t, err)
	_, err = f.network.RespondToFriendRequest(f.ctx, manager, request.ID.String(), service.RespondFriendRequestRequest{
		Decision: service.DecisionAccept,
	})
	require.NoError(t, err)
	return f.refresh(t, wholesaler)
}

func (f *fixture) newAppraisal(t *testing.T, dealer authz.Actor, dealershipID uuid.UUID, reserve int64) *service.AppraisalResponse {
	t.Helper()
	appraisal, err := f.appraisals.Create(f.ctx, dealer, service.CreateAppraisalRequest{
		DealershipID:        dealershipID.String(),
		CustomerFirstName:   "Jane",
		CustomerLastName:    "Citizen",
		VehicleMake:         "Toyota",
		VehicleModel:        "Corolla",
		VehicleYear:         2018,
		VehicleVIN:          "jtdbr32e530012345",
		VehicleRegistration: "abc123",
		OdometerReading:     85000,
		ReservePrice:        decimal.NewFromInt(reserve),
	})
	require.NoError(t, err)
	return appraisal
}
