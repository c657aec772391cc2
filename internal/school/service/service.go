package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"schoolpay/internal/school"
	"schoolpay/internal/user"
	id "schoolpay/pkg/domain"
	dErrors "schoolpay/pkg/domain-errors"
	"schoolpay/pkg/platform/sentinel"
	"schoolpay/pkg/requestcontext"
)

// Store is the persistence surface the school service needs.
type Store interface {
	Create(ctx context.Context, sc *school.School) error
	FindByID(ctx context.Context, schoolID id.SchoolID) (*school.School, error)
	FindByOwner(ctx context.Context, ownerID id.UserID) (*school.School, error)
	Update(ctx context.Context, sc *school.School) error
	Delete(ctx context.Context, schoolID id.SchoolID) error
	List(ctx context.Context) ([]school.School, error)
}

// Directory enrolls students into a school. Backed by the user store through
// an adapter so this package stays decoupled from user persistence.
type Directory interface {
	EnrollStudent(ctx context.Context, schoolID id.SchoolID, entry RosterEntry) (created bool, err error)
}

// Service owns school lifecycle, fee structure and roster imports.
type Service struct {
	store     Store
	directory Directory
	logger    *slog.Logger
}

// Option customizes optional service collaborators.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

func NewService(store Store, directory Directory, opts ...Option) *Service {
	s := &Service{
		store:     store,
		directory: directory,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput describes a new school.
type CreateInput struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Logo    string
}

// Create registers a school owned by the calling account. An owner can hold
// at most one school.
func (s *Service) Create(ctx context.Context, ownerID id.UserID, in CreateInput) (*school.School, error) {
	if in.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "school name is required")
	}

	sc := &school.School{
		ID:        id.NewSchoolID(),
		Name:      in.Name,
		Slug:      user.Slugify(in.Name),
		OwnerID:   ownerID,
		Address:   in.Address,
		Phone:     in.Phone,
		Email:     user.NormalizeEmail(in.Email),
		Logo:      in.Logo,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, sc); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "account already owns a school")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create school")
	}
	return sc, nil
}

// Get returns one school by id.
func (s *Service) Get(ctx context.Context, schoolID id.SchoolID) (*school.School, error) {
	return s.get(ctx, schoolID)
}

// GetMine returns the school owned by the calling account.
func (s *Service) GetMine(ctx context.Context, ownerID id.UserID) (*school.School, error) {
	sc, err := s.store.FindByOwner(ctx, ownerID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no school registered for this account")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "school lookup failed")
	}
	return sc, nil
}

// List returns every school.
func (s *Service) List(ctx context.Context) ([]school.School, error) {
	schools, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list schools")
	}
	return schools, nil
}

// UpdateInput carries a partial school update; nil fields are left untouched.
type UpdateInput struct {
	Name        *string
	Address     *string
	Phone       *string
	Email       *string
	Logo        *string
	Tag         *string
	Header      *string
	Bio         *string
	Color       *string
	Social      *school.SocialLinks
	FeeDeadline *time.Time
	Installment *bool
	Sessions    []school.Session
}

// Update applies a partial update to a school. Only the owner or an admin may
// modify it. Renaming recomputes the slug.
func (s *Service) Update(ctx context.Context, schoolID id.SchoolID, in UpdateInput) (*school.School, error) {
	sc, err := s.getOwned(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&sc.Name, in.Name)
	apply(&sc.Address, in.Address)
	apply(&sc.Phone, in.Phone)
	apply(&sc.Logo, in.Logo)
	apply(&sc.Tag, in.Tag)
	apply(&sc.Header, in.Header)
	apply(&sc.Bio, in.Bio)
	apply(&sc.Color, in.Color)
	if in.Email != nil {
		sc.Email = user.NormalizeEmail(*in.Email)
	}
	if in.Social != nil {
		sc.Social = *in.Social
	}
	if in.FeeDeadline != nil {
		sc.FeeDeadline = in.FeeDeadline
	}
	if in.Installment != nil {
		sc.Installment = *in.Installment
	}
	if in.Sessions != nil {
		if err := validateSessions(in.Sessions); err != nil {
			return nil, err
		}
		sc.Sessions = in.Sessions
	}
	if sc.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "school name is required")
	}
	sc.Slug = user.Slugify(sc.Name)

	if err := s.update(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

func validateSessions(sessions []school.Session) error {
	for _, sess := range sessions {
		if sess.Name == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "sessions need a name")
		}
		for _, t := range sess.Terms {
			if t.No < 1 || t.No > 3 {
				return dErrors.New(dErrors.CodeInvalidInput, "session term number must be between 1 and 3")
			}
			if !t.EndDate.After(t.StartDate) {
				return dErrors.New(dErrors.CodeInvalidInput, "session term must end after it starts")
			}
		}
	}
	return nil
}

// SetFees replaces the school's published fee structure.
func (s *Service) SetFees(ctx context.Context, schoolID id.SchoolID, items []school.FeeItem) (*school.School, error) {
	for _, f := range items {
		if f.Name == "" || f.Amount <= 0 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "fee items need a name and a positive amount")
		}
		if f.Term < 1 || f.Term > 3 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "fee item term must be between 1 and 3")
		}
		if f.Session == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "fee items need a session")
		}
	}

	sc, err := s.getOwned(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	sc.FeeItems = items
	if err := s.update(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// Delete removes a school. Admin only; enforced at the router.
func (s *Service) Delete(ctx context.Context, schoolID id.SchoolID) error {
	err := s.store.Delete(ctx, schoolID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "school not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to delete school")
	}
	return nil
}

func (s *Service) get(ctx context.Context, schoolID id.SchoolID) (*school.School, error) {
	sc, err := s.store.FindByID(ctx, schoolID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "school not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "school lookup failed")
	}
	return sc, nil
}

// getOwned loads a school and verifies the caller may modify it.
func (s *Service) getOwned(ctx context.Context, schoolID id.SchoolID) (*school.School, error) {
	sc, err := s.get(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if requestcontext.UserRole(ctx) == string(user.RoleAdmin) {
		return sc, nil
	}
	if sc.OwnerID != requestcontext.UserID(ctx) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not the owner of this school")
	}
	return sc, nil
}

func (s *Service) update(ctx context.Context, sc *school.School) error {
	err := s.store.Update(ctx, sc)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrVersionMismatch):
		return dErrors.New(dErrors.CodeConflict, "school was modified concurrently, retry")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "school not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to update school")
	}
}
