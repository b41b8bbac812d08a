package profile

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/repo"
	userentity "github.com/ovaphlow/pitchfork/service-profile-admin/internal/user/entity"
)

// Store is the persistence surface Service needs; *repo.ProfileRepo satisfies it.
type Store interface {
	List(ctx context.Context) ([]entity.Profile, error)
	Get(ctx context.Context, id string) (*entity.Profile, error)
	Seed(ctx context.Context, id string) error
	Upsert(ctx context.Context, id string, p entity.Patch, at time.Time) (*entity.Profile, error)
	Classify(ctx context.Context, id, userType, status string, at time.Time) (bool, error)
}

// AccountLister provides the account half of the directory listing.
type AccountLister interface {
	ListSummaries(ctx context.Context) ([]userentity.Summary, error)
}

// sentinel errors for common failure modes
var (
	ErrNotFound = errors.New("profile not found")
)

// Service encapsulates profile reads and self-service updates.
type Service struct {
	repo Store
	now  func() time.Time
}

// NewService constructs a Service. A nil store falls back to the Postgres repo on db.
func NewService(db *sqlx.DB, r Store) *Service {
	if r == nil {
		r = repo.NewProfileRepo(db)
	}
	return &Service{repo: r, now: func() time.Time { return time.Now().UTC() }}
}

// List returns the full profile collection.
func (s *Service) List(ctx context.Context) ([]entity.Profile, error) {
	return s.repo.List(ctx)
}

// Get returns a profile by id.
func (s *Service) Get(ctx context.Context, id string) (*entity.Profile, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Update merges the patch into the caller's own profile and stamps updated_at.
func (s *Service) Update(ctx context.Context, id string, p entity.Patch) (*entity.Profile, error) {
	return s.repo.Upsert(ctx, id, p, s.now())
}

// Seed implements user.ProfileSeeder.
func (s *Service) Seed(ctx context.Context, id string) error {
	return s.repo.Seed(ctx, id)
}

// Classify sets the classification fields of an existing profile.
func (s *Service) Classify(ctx context.Context, id, userType, status string) error {
	ok, err := s.repo.Classify(ctx, id, userType, status, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Directory is the admin listing payload: accounts and their profiles.
type Directory struct {
	Users    []userentity.Summary `json:"users"`
	Profiles []entity.Profile     `json:"profiles"`
}

// Directory lists accounts and profiles in two independent queries.
func (s *Service) Directory(ctx context.Context, accounts AccountLister) (*Directory, error) {
	users, err := accounts.ListSummaries(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Directory{Users: users, Profiles: profiles}, nil
}
