package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"arena-bot/internal/model"
	"arena-bot/internal/store"
)

// Profile is the data a player registers with.
type Profile struct {
	Username string `validate:"notblank,max=32"`
	Password string `validate:"notblank"`
	Email    string `validate:"omitempty,email"`
}

// SeedUser is a user installed at startup with an opening balance.
type SeedUser struct {
	ID             string
	Username       string
	Password       string
	Email          string
	OpeningBalance decimal.Decimal
}

// Seed is the directory content installed into an empty state.
type Seed struct {
	Owner  model.Owner
	Admins []model.Admin
	Users  []SeedUser
}

// DirectoryService is the registry of users, admins and the owner.
// Usernames are unique across the three identity spaces.
type DirectoryService struct {
	store    *store.Store
	validate *validator.Validate
	now      func() time.Time
}

// NewDirectoryService creates a new DirectoryService instance.
func NewDirectoryService(st *store.Store) *DirectoryService {
	return &DirectoryService{
		store:    st,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Authenticate checks the owner, then admins, then users. A user whose
// credentials match but who is banned yields LoginBanned; anything that does
// not match yields LoginNotFound.
func (s *DirectoryService) Authenticate(ctx context.Context, username, password string) (model.LoginResult, model.Principal, error) {
	if err := ctx.Err(); err != nil {
		return model.LoginNotFound, model.Principal{}, err
	}

	result := model.LoginNotFound
	var principal model.Principal
	s.store.View(func(st *store.State) {
		acc, ok := st.FindAccount(username)
		if !ok || !acc.Authenticate(username, password) {
			return
		}
		switch a := acc.(type) {
		case *model.User:
			if a.Banned {
				result = model.LoginBanned
				return
			}
		case *model.Admin, *model.Owner:
		}
		result = model.LoginSuccess
		principal = model.PrincipalOf(acc)
	})
	return result, principal, nil
}

// Register creates a User with a zero balance.
func (s *DirectoryService) Register(ctx context.Context, p Profile) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	var created *model.User
	err := s.store.Update(func(st *store.State) error {
		if _, taken := st.FindAccount(p.Username); taken {
			return ErrDuplicateUsername
		}
		u := &model.User{
			ID:             newID("user"),
			Credentials:    model.Credentials{Username: p.Username, Password: p.Password},
			Email:          p.Email,
			Balance:        decimal.Zero,
			OpeningBalance: decimal.Zero,
			CreatedAt:      s.now(),
		}
		st.PutUser(u)
		created = u.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("User registered")
	return created, nil
}

// Principal resolves an account id to its current identity.
func (s *DirectoryService) Principal(ctx context.Context, id string) (model.Principal, error) {
	if err := ctx.Err(); err != nil {
		return model.Principal{}, err
	}

	var (
		p   model.Principal
		err error
	)
	s.store.View(func(st *store.State) {
		acc, ok := st.Account(id)
		if !ok {
			err = fmt.Errorf("account %s: %w", id, ErrNotFound)
			return
		}
		if u, isUser := acc.(*model.User); isUser && u.Banned {
			err = ErrAccountBanned
			return
		}
		p = model.PrincipalOf(acc)
	})
	return p, err
}

// UserByName finds a user by username.
func (s *DirectoryService) UserByName(ctx context.Context, username string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var found *model.User
	s.store.View(func(st *store.State) {
		if acc, ok := st.FindAccount(username); ok {
			if u, isUser := acc.(*model.User); isUser {
				found = u.Clone()
			}
		}
	})
	if found == nil {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return found, nil
}

// ToggleBan flips a user's banned flag and returns the new value.
func (s *DirectoryService) ToggleBan(ctx context.Context, actorID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var banned bool
	err := s.store.Update(func(st *store.State) error {
		if _, err := requireOwner(st, actorID); err != nil {
			return err
		}
		u, ok := st.User(userID)
		if !ok {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		u.Banned = !u.Banned
		banned = u.Banned
		return nil
	})
	if err != nil {
		return false, err
	}

	log.Info().Str("actor_id", actorID).Str("user_id", userID).Bool("banned", banned).Msg("Admin operation executed")
	return banned, nil
}

// AddAdmin creates an admin account.
func (s *DirectoryService) AddAdmin(ctx context.Context, actorID, username, password string) (*model.Admin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isBlank(username) || isBlank(password) {
		return nil, ErrInvalidCredentials
	}

	var created *model.Admin
	err := s.store.Update(func(st *store.State) error {
		if _, err := requireOwner(st, actorID); err != nil {
			return err
		}
		if _, taken := st.FindAccount(username); taken {
			return ErrDuplicateUsername
		}
		a := &model.Admin{
			ID:          newID("admin"),
			Credentials: model.Credentials{Username: username, Password: password},
			CreatedAt:   s.now(),
		}
		st.PutAdmin(a)
		created = a.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("actor_id", actorID).Str("admin_id", created.ID).Msg("Admin operation executed")
	return created, nil
}

// RemoveAdmin deletes an admin account. Matches it created stay in place and
// remain manageable by the owner.
func (s *DirectoryService) RemoveAdmin(ctx context.Context, actorID, adminID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.store.Update(func(st *store.State) error {
		if _, err := requireOwner(st, actorID); err != nil {
			return err
		}
		if !st.RemoveAdmin(adminID) {
			return fmt.Errorf("admin %s: %w", adminID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("actor_id", actorID).Str("admin_id", adminID).Msg("Admin operation executed")
	return nil
}

// AdminByName finds an admin by username.
func (s *DirectoryService) AdminByName(ctx context.Context, username string) (*model.Admin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var found *model.Admin
	s.store.View(func(st *store.State) {
		if acc, ok := st.FindAccount(username); ok {
			if a, isAdmin := acc.(*model.Admin); isAdmin {
				found = a.Clone()
			}
		}
	})
	if found == nil {
		return nil, fmt.Errorf("admin %q: %w", username, ErrNotFound)
	}
	return found, nil
}

// Users lists every user for the owner.
func (s *DirectoryService) Users(ctx context.Context, actorID string) ([]*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		users []*model.User
		err   error
	)
	s.store.View(func(st *store.State) {
		if _, err = requireOwner(st, actorID); err != nil {
			return
		}
		for _, u := range st.Users() {
			users = append(users, u.Clone())
		}
	})
	return users, err
}

// Admins lists every admin for the owner.
func (s *DirectoryService) Admins(ctx context.Context, actorID string) ([]*model.Admin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		admins []*model.Admin
		err    error
	)
	s.store.View(func(st *store.State) {
		if _, err = requireOwner(st, actorID); err != nil {
			return
		}
		for _, a := range st.Admins() {
			admins = append(admins, a.Clone())
		}
	})
	return admins, err
}

// ApplySeed installs the owner and any seeded admins and users that are not
// present yet. Existing accounts are left untouched, so reseeding a loaded
// state is a no-op apart from the owner's credentials.
func (s *DirectoryService) ApplySeed(ctx context.Context, seed Seed) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.store.Update(func(st *store.State) error {
		if seed.Owner.ID != "" {
			owner := seed.Owner
			st.SetOwner(&owner)
		}
		now := s.now()
		for i := range seed.Admins {
			a := seed.Admins[i].Clone()
			if _, exists := st.Admin(a.ID); exists {
				continue
			}
			if _, taken := st.FindAccount(a.Username); taken {
				return fmt.Errorf("seed admin %q: %w", a.Username, ErrDuplicateUsername)
			}
			if a.CreatedAt.IsZero() {
				a.CreatedAt = now
			}
			st.PutAdmin(a)
		}
		for _, su := range seed.Users {
			if _, exists := st.User(su.ID); exists {
				continue
			}
			if _, taken := st.FindAccount(su.Username); taken {
				return fmt.Errorf("seed user %q: %w", su.Username, ErrDuplicateUsername)
			}
			if su.OpeningBalance.IsNegative() {
				return fmt.Errorf("seed user %q: %w", su.Username, ErrInvalidAmount)
			}
			st.PutUser(&model.User{
				ID:             su.ID,
				Credentials:    model.Credentials{Username: su.Username, Password: su.Password},
				Email:          su.Email,
				Balance:        su.OpeningBalance,
				OpeningBalance: su.OpeningBalance,
				CreatedAt:      now,
			})
		}
		return nil
	})
}
