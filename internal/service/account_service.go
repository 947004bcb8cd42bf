package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"appraisal-backend/internal/authz"
	"appraisal-backend/internal/model"
	"appraisal-backend/internal/repository"
	"appraisal-backend/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type RegisterAccountRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type RegisterWholesalerRequest struct {
	RegisterAccountRequest
	WholesalerName string `json:"wholesaler_name" binding:"required"`
	StreetAddress  string `json:"street_address"`
	Suburb         string `json:"suburb"`
	State          string `json:"state"`
	Postcode       string `json:"postcode"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	Kind      string    `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MeResponse describes the resolved actor behind a token.
type MeResponse struct {
	AccountID     uuid.UUID   `json:"account_id"`
	Username      string      `json:"username"`
	Email         string      `json:"email"`
	FullName      string      `json:"full_name"`
	Kind          string      `json:"kind"`
	ProfileID     uuid.UUID   `json:"profile_id"`
	DealershipIDs []uuid.UUID `json:"dealership_ids"`
}

// TokenIssuer signs and verifies access tokens.
type TokenIssuer struct {
	Secret []byte
	TTL    time.Duration
}

// Issue signs a token with sub = account id. kind is informational; the actor is always
// re-resolved from storage on each request.
func (t TokenIssuer) Issue(accountID uuid.UUID, kind authz.Kind) (string, time.Time, error) {
	expiresAt := time.Now().Add(t.TTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  accountID.String(),
		"kind": kind.String(),
		"exp":  expiresAt.Unix(),
		"iat":  time.Now().Unix(),
	})
	signed, err := token.SignedString(t.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates tokenString and returns its subject.
func (t TokenIssuer) Parse(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(sub)
}

type AccountService interface {
	RegisterDealer(ctx context.Context, req RegisterAccountRequest) (*MeResponse, error)
	RegisterWholesaler(ctx context.Context, req RegisterWholesalerRequest) (*MeResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	// ResolveActor maps an account onto exactly one profile kind, or authz.Anonymous.
	ResolveActor(ctx context.Context, accountID uuid.UUID) (authz.Actor, error)
	Me(ctx context.Context, actor authz.Actor) (*MeResponse, error)
}

type accountService struct {
	accountRepo    repository.AccountRepository
	dealerRepo     repository.DealerProfileRepository
	wholesalerRepo repository.WholesalerRepository
	txManager      repository.TransactionManager
	tokens         TokenIssuer
}

func NewAccountService(
	accountRepo repository.AccountRepository,
	dealerRepo repository.DealerProfileRepository,
	wholesalerRepo repository.WholesalerRepository,
	txManager repository.TransactionManager,
	tokens TokenIssuer,
) AccountService {
	return &accountService{
		accountRepo:    accountRepo,
		dealerRepo:     dealerRepo,
		wholesalerRepo: wholesalerRepo,
		txManager:      txManager,
		tokens:         tokens,
	}
}

func (s *accountService) newAccount(ctx context.Context, req RegisterAccountRequest) (*model.Account, error) {
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		return nil, apperror.Validation("username is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, apperror.Validation("invalid email format")
	}
	if len(req.Password) < 8 {
		return nil, apperror.Validation("password must be at least 8 characters")
	}

	exists, err := s.accountRepo.Exists(ctx, req.Username, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.InvalidState("username or email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return &model.Account{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  string(hashed),
	}, nil
}

// RegisterDealer creates an account with a management profile that works nowhere yet; the
// first dealership it creates becomes its tenancy.
func (s *accountService) RegisterDealer(ctx context.Context, req RegisterAccountRequest) (*MeResponse, error) {
	account, err := s.newAccount(ctx, req)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.accountRepo.Create(txCtx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		profile := &model.DealerProfile{
			AccountID: account.ID,
			Role:      model.DealerRoleManagement,
			Phone:     req.Phone,
			IsActive:  true,
		}
		if err := s.dealerRepo.Create(txCtx, profile); err != nil {
			return fmt.Errorf("failed to create dealer profile: %w", err)
		}
		account.DealerProfile = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toMeResponse(account, authz.Actor{
		AccountID: account.ID,
		Kind:      authz.KindManagement,
		ProfileID: account.DealerProfile.ID,
	}), nil
}

func (s *accountService) RegisterWholesaler(ctx context.Context, req RegisterWholesalerRequest) (*MeResponse, error) {
	if strings.TrimSpace(req.WholesalerName) == "" {
		return nil, apperror.Validation("wholesaler_name is required")
	}
	if err := validateAddressState(req.State); err != nil {
		return nil, err
	}
	account, err := s.newAccount(ctx, req.RegisterAccountRequest)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.accountRepo.Create(txCtx, account); err != nil {
			return fmt.Errorf("failed to create account: %w", err)
		}
		profile := &model.WholesalerProfile{
			AccountID:     account.ID,
			Name:          strings.TrimSpace(req.WholesalerName),
			StreetAddress: req.StreetAddress,
			Suburb:        req.Suburb,
			State:         req.State,
			Postcode:      req.Postcode,
			Email:         req.Email,
			Phone:         req.Phone,
			IsActive:      true,
		}
		if err := s.wholesalerRepo.Create(txCtx, profile); err != nil {
			return fmt.Errorf("failed to create wholesaler profile: %w", err)
		}
		account.WholesalerProfile = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toMeResponse(account, authz.Actor{
		AccountID: account.ID,
		Kind:      authz.KindWholesaler,
		ProfileID: account.WholesalerProfile.ID,
	}), nil
}

func (s *accountService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	account, err := s.accountRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.Validation("invalid username or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Validation("invalid username or password")
	}

	actor, err := s.ResolveActor(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAuthenticated() {
		return nil, apperror.Forbidden()
	}

	token, expiresAt, err := s.tokens.Issue(account.ID, actor.Kind)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: token, Kind: actor.Kind.String(), ExpiresAt: expiresAt}, nil
}

func (s *accountService) ResolveActor(ctx context.Context, accountID uuid.UUID) (authz.Actor, error) {
	account, err := s.accountRepo.LoadProfiles(ctx, accountID)
	if err != nil {
		if repository.IsNotFound(err) {
			return authz.Anonymous, nil
		}
		return authz.Anonymous, fmt.Errorf("failed to resolve actor: %w", err)
	}
	return actorFor(account), nil
}

func actorFor(account *model.Account) authz.Actor {
	switch {
	case account.DealerProfile != nil && account.WholesalerProfile != nil:
		// an account must own exactly one profile kind
		return authz.Anonymous
	case account.DealerProfile != nil:
		profile := account.DealerProfile
		if !profile.IsActive {
			return authz.Anonymous
		}
		kind := authz.KindSales
		if profile.IsManagement() {
			kind = authz.KindManagement
		}
		return authz.Actor{
			AccountID:     account.ID,
			Kind:          kind,
			ProfileID:     profile.ID,
			DealershipIDs: profile.DealershipIDs(),
		}
	case account.WholesalerProfile != nil:
		profile := account.WholesalerProfile
		if !profile.IsActive {
			return authz.Anonymous
		}
		ids := make([]uuid.UUID, 0, len(profile.Dealerships))
		for _, d := range profile.Dealerships {
			ids = append(ids, d.ID)
		}
		return authz.Actor{
			AccountID:     account.ID,
			Kind:          authz.KindWholesaler,
			ProfileID:     profile.ID,
			DealershipIDs: ids,
		}
	}
	return authz.Anonymous
}

func (s *accountService) Me(ctx context.Context, actor authz.Actor) (*MeResponse, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}
	account, err := s.accountRepo.FindByID(ctx, actor.AccountID)
	if err != nil {
		return nil, notFoundOr(err, "account")
	}
	return toMeResponse(account, actor), nil
}

func toMeResponse(account *model.Account, actor authz.Actor) *MeResponse {
	ids := actor.DealershipIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return &MeResponse{
		AccountID:     account.ID,
		Username:      account.Username,
		Email:         account.Email,
		FullName:      account.FullName(),
		Kind:          actor.Kind.String(),
		ProfileID:     actor.ProfileID,
		DealershipIDs: ids,
	}
}

func validateAddressState(state string) error {
	if state == "" {
		return nil
	}
	if _, ok := model.AustralianStates[state]; !ok {
		return apperror.Validation("state must be one of NSW, QLD, SA, TAS, VIC, WA, ACT, NT")
	}
	return nil
}
