package commerce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jacentio/storefront/docdb"
)

var errInvalidCredentials = Unauthorized("invalid username or password")

// Registration is the input for registering a tenant.
type Registration struct {
	Username string `json:"username"`
	Mail     string `json:"mail"`
	Password string `json:"password"`
}

// Session is returned by a successful login.
type Session struct {
	TenantID string `json:"tenantId"`
	HasStore bool   `json:"hasStore"`
	Username string `json:"username"`
	Mail     string `json:"mail"`
	Role     string `json:"role"`
	StoreID  string `json:"storeId,omitempty"`
}

// Logout acknowledges a logout. No server-side session exists.
type Logout struct {
	IsLoggedOut bool `json:"isLoggedOut"`
}

// TenantService registers and authenticates tenants.
type TenantService struct {
	repo Repository
	opts Options
}

func NewTenantService(repo Repository, opts Options) *TenantService {
	return &TenantService{repo: repo, opts: opts.withDefaults()}
}

// Register creates a tenant with a hashed password. A mail or username that
// is already taken is a KindBadRequest error.
func (s *TenantService) Register(ctx context.Context, in Registration) (*Tenant, error) {
	if in.Username == "" || in.Mail == "" || in.Password == "" {
		return nil, BadRequest("username, mail and password are required")
	}

	if err := s.ensureFree(ctx, s.repo.TenantByMail, in.Mail, "Tenant with mail %s already exists"); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, s.repo.TenantByUsername, in.Username, "Tenant with username %s already exists"); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, BadRequest("password must be at most 72 bytes")
	}
	if err != nil {
		return nil, ServerError("failed to hash password", err)
	}

	tenant := &Tenant{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Mail:         in.Mail,
		PasswordHash: string(hash),
		Role:         RoleTenant,
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	tx := s.repo.Begin()
	defer tx.Abort()

	if err := tx.CreateTenant(tenant); err != nil {
		return nil, ServerError("failed to stage tenant", err)
	}
	// Lookups above race with concurrent registrations; the unique
	// constraint records decide the winner.
	if err := tx.Commit(ctx); err != nil {
		return nil, writeError(err, "Tenant with this username or mail already exists")
	}

	s.opts.Logger.Info("tenant registered", slog.String("tenantId", tenant.ID))
	return tenant, nil
}

func (s *TenantService) ensureFree(ctx context.Context, find func(context.Context, string) (*Tenant, error), value, taken string) error {
	_, err := find(ctx, value)
	switch {
	case err == nil:
		return BadRequestf(taken, value)
	case errors.Is(err, docdb.ErrNotFound):
		return nil
	default:
		return ServerError("database read failed", fmt.Errorf("tenant lookup: %w", err))
	}
}

// Login verifies a username and password. Unknown usernames and wrong
// passwords produce the same KindUnauthorized error.
func (s *TenantService) Login(ctx context.Context, username, password string) (*Session, error) {
	tenant, err := s.repo.TenantByUsername(ctx, username)
	if errors.Is(err, docdb.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, ServerError("database read failed", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(tenant.PasswordHash), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	return &Session{
		TenantID: tenant.ID,
		HasStore: tenant.HasStore(),
		Username: tenant.Username,
		Mail:     tenant.Mail,
		Role:     tenant.Role,
		StoreID:  tenant.StoreID,
	}, nil
}

// Logout is a stateless acknowledgement.
func (s *TenantService) Logout(context.Context) *Logout {
	return &Logout{IsLoggedOut: true}
}
