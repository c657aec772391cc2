package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"schoolpay/internal/user"
	id "schoolpay/pkg/domain"
	dErrors "schoolpay/pkg/domain-errors"
	"schoolpay/pkg/platform/sentinel"
	"schoolpay/pkg/requestcontext"
)

// Store is the persistence surface the user service needs.
type Store interface {
	Create(ctx context.Context, u *user.User) error
	FindByID(ctx context.Context, userID id.UserID) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	Update(ctx context.Context, u *user.User) error
	Delete(ctx context.Context, userID id.UserID) error
	List(ctx context.Context) ([]user.User, error)
}

const (
	minPasswordLength = 8
	resetTokenTTL     = 10 * time.Minute
)

// Service owns account lifecycle: registration, authentication, profile
// updates and the password-reset flow.
type Service struct {
	store  Store
	tokens *TokenIssuer
	logger *slog.Logger
}

// Option customizes optional service collaborators.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

func NewService(store Store, tokens *TokenIssuer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput creates a new account. Role defaults to student.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      user.Role
}

// Register creates an account and returns it with a session token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*user.User, string, error) {
	if in.FirstName == "" || in.LastName == "" {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "first and last name are required")
	}
	email := user.NormalizeEmail(in.Email)
	if email == "" {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}
	role := in.Role
	if role == "" {
		role = user.RoleStudent
	}
	if !role.IsValid() {
		return nil, "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	u := &user.User{
		ID:           id.NewUserID(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        email,
		Username:     user.Slugify(in.FirstName + " " + in.LastName),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, "", dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create user")
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return u, token, nil
}

// Authenticate checks credentials and returns the user with a session token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*user.User, string, error) {
	u, err := s.store.FindByEmail(ctx, user.NormalizeEmail(email))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeUnavailable, "user lookup failed")
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return u, token, nil
}

// Me returns the authenticated user's own record.
func (s *Service) Me(ctx context.Context, userID id.UserID) (*user.User, error) {
	return s.get(ctx, userID)
}

// UpdateDetailsInput carries a partial profile update; nil fields are left
// untouched.
type UpdateDetailsInput struct {
	Bio           *string
	BankName      *string
	BankCode      *string
	AccountName   *string
	AccountNumber *string
	Picture       *string
}

// UpdateDetails applies a partial profile update for the authenticated user.
func (s *Service) UpdateDetails(ctx context.Context, userID id.UserID, in UpdateDetailsInput) (*user.User, error) {
	u, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&u.Bio, in.Bio)
	apply(&u.BankName, in.BankName)
	apply(&u.BankCode, in.BankCode)
	apply(&u.AccountName, in.AccountName)
	apply(&u.AccountNumber, in.AccountNumber)
	apply(&u.Picture, in.Picture)

	if err := s.update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// UpdatePassword rotates the password after verifying the current one.
func (s *Service) UpdatePassword(ctx context.Context, userID id.UserID, current, next string) error {
	if len(next) < minPasswordLength {
		return dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}

	u, err := s.get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(current)); err != nil {
		return dErrors.New(dErrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	u.PasswordHash = hash
	return s.update(ctx, u)
}

// ForgotPassword issues a single-use reset token valid for ten minutes. Only
// its SHA-256 hash is stored. An unknown email succeeds without a token so
// the endpoint cannot be used to enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := s.store.FindByEmail(ctx, user.NormalizeEmail(email))
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.InfoContext(ctx, "password reset requested for unknown email",
			"request_id", requestcontext.RequestID(ctx),
		)
		return "", nil
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "user lookup failed")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate reset token")
	}
	token := hex.EncodeToString(raw)

	u.ResetTokenHash = hashToken(token)
	u.ResetTokenExpires = requestcontext.Now(ctx).Add(resetTokenTTL)
	if err := s.update(ctx, u); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, email, token, next string) error {
	if len(next) < minPasswordLength {
		return dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}

	u, err := s.store.FindByEmail(ctx, user.NormalizeEmail(email))
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid or expired reset token")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "user lookup failed")
	}
	if u.ResetTokenHash == "" || u.ResetTokenHash != hashToken(token) {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid or expired reset token")
	}
	if requestcontext.Now(ctx).After(u.ResetTokenExpires) {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid or expired reset token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	u.PasswordHash = hash
	u.ResetTokenHash = ""
	u.ResetTokenExpires = requestcontext.Now(ctx)
	return s.update(ctx, u)
}

// List returns every account. Admin only; enforced at the router.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list users")
	}
	return users, nil
}

// Get returns one account by id.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*user.User, error) {
	return s.get(ctx, userID)
}

// UpdateRole reassigns an account's role. Admin only; enforced at the router.
func (s *Service) UpdateRole(ctx context.Context, userID id.UserID, role user.Role) (*user.User, error) {
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
	u, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Role = role
	if err := s.update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes an account. Admin only; enforced at the router.
func (s *Service) Delete(ctx context.Context, userID id.UserID) error {
	err := s.store.Delete(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to delete user")
	}
	return nil
}

func (s *Service) get(ctx context.Context, userID id.UserID) (*user.User, error) {
	u, err := s.store.FindByID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user lookup failed")
	}
	return u, nil
}

func (s *Service) update(ctx context.Context, u *user.User) error {
	err := s.store.Update(ctx, u)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrVersionMismatch):
		return dErrors.New(dErrors.CodeConflict, "user was modified concurrently, retry")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "email already registered")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update user")
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
