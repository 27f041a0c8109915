package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/642studio/bachejoa/internal/datastore"
	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/query"
	"github.com/642studio/bachejoa/internal/reporting"
)

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong
	// password so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username or email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError is a rejected input. Message is safe to show to the
// caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// AvatarOptions are the selectable profile pictures.
var AvatarOptions = []string{"bart.svg", "homer.svg", "lisa.svg", "marge.svg"}

// RegisterInput is the payload of a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UserService manages citizen and admin accounts.
type UserService struct {
	store  datastore.Store
	hasher *PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

// NewUserService creates a UserService.
func NewUserService(store datastore.Store, hasher *PasswordHasher, logger *slog.Logger) *UserService {
	return &UserService{store: store, hasher: hasher, logger: logger, now: now}
}

// Register validates in and creates a citizen account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	password := strings.TrimSpace(in.Password)

	if n := utf8.RuneCountInString(username); n < 3 || n > 30 {
		return nil, invalid("Username inválido.")
	}
	if !strings.Contains(email, "@") {
		return nil, invalid("Correo inválido.")
	}
	if utf8.RuneCountInString(password) < 8 {
		return nil, invalid("La contraseña debe tener al menos 8 caracteres.")
	}

	for _, f := range []query.Filter{query.Eq("email", email), query.Eq("username", username)} {
		n, err := s.store.Count(ctx, datastore.TableUsers, []query.Filter{f})
		if err != nil {
			return nil, fmt.Errorf("check existing user: %w", err)
		}
		if n > 0 {
			return nil, ErrUserExists
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Role:      model.RoleCitizen,
		CreatedAt: s.now(),
	}
	err = s.store.Insert(ctx, datastore.TableUsers, datastore.Row{
		"id":            user.ID,
		"username":      user.Username,
		"email":         user.Email,
		"role":          user.Role,
		"password_hash": hash,
		"avatar_key":    nil,
		"created_at":    user.CreatedAt,
	})
	if errors.Is(err, datastore.ErrConflict) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks identifier (email or username) and password. The
// email match is exact after lower-casing; the username match ignores case.
func (s *UserService) Authenticate(ctx context.Context, identifier, password string) (*model.User, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	password = strings.TrimSpace(password)
	if identifier == "" || password == "" {
		return nil, invalid("Correo/usuario y contraseña son obligatorios.")
	}

	cred, err := s.findCredential(ctx, identifier)
	if err != nil {
		if !errors.Is(err, datastore.ErrNotFound) {
			s.logger.Warn("credential lookup failed", "error", err)
		}
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, cred.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return &cred.User, nil
}

func (s *UserService) findCredential(ctx context.Context, identifier string) (*model.Credential, error) {
	var cred model.Credential
	err := s.store.SelectOne(ctx, datastore.Query{
		Table:   datastore.TableUsers,
		Columns: model.CredentialColumns,
		Filters: []query.Filter{query.Eq("email", identifier)},
	}, &cred)
	if !errors.Is(err, datastore.ErrNotFound) {
		return &cred, err
	}
	err = s.store.SelectOne(ctx, datastore.Query{
		Table:   datastore.TableUsers,
		Columns: model.CredentialColumns,
		Filters: []query.Filter{query.EqFold("username", identifier)},
	}, &cred)
	return &cred, err
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.store.SelectOne(ctx, datastore.Query{
		Table:   datastore.TableUsers,
		Columns: model.UserColumns,
		Filters: []query.Filter{query.Eq("id", id)},
	}, &user)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// UpdateAvatar sets the profile picture of userID and returns the updated
// user.
func (s *UserService) UpdateAvatar(ctx context.Context, userID, avatarKey string) (*model.User, error) {
	avatarKey = strings.TrimSpace(avatarKey)
	valid := false
	for _, a := range AvatarOptions {
		if a == avatarKey {
			valid = true
			break
		}
	}
	if !valid {
		return nil, invalid("Avatar inválido.")
	}

	if _, err := s.store.Update(ctx, datastore.TableUsers,
		[]query.Filter{query.Eq("id", userID)},
		datastore.Row{"avatar_key": avatarKey},
	); err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	return s.Get(ctx, userID)
}

// Stats counts the reports filed by userID.
func (s *UserService) Stats(ctx context.Context, userID string) (*model.UserStats, error) {
	total, err := s.store.Count(ctx, datastore.TableReports, []query.Filter{query.Eq("user_id", userID)})
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	verified, err := s.store.Count(ctx, datastore.TableReports, []query.Filter{
		query.Eq("user_id", userID),
		query.Eq("status", reporting.StatusVerified),
	})
	if err != nil {
		return nil, fmt.Errorf("count verified reports: %w", err)
	}
	return &model.UserStats{ReportsTotal: total, ReportsVerified: verified}, nil
}

// SetRole changes the role of the user identified by email or username.
func (s *UserService) SetRole(ctx context.Context, identifier, role string) (*model.User, error) {
	if role != model.RoleCitizen && role != model.RoleAdmin {
		return nil, invalid(fmt.Sprintf("unknown role %q", role))
	}
	cred, err := s.findCredential(ctx, strings.ToLower(strings.TrimSpace(identifier)))
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if _, err := s.store.Update(ctx, datastore.TableUsers,
		[]query.Filter{query.Eq("id", cred.ID)},
		datastore.Row{"role": role},
	); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	user := cred.User
	user.Role = role
	return &user, nil
}

// List returns every account, oldest first.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	err := s.store.Select(ctx, datastore.Query{
		Table:   datastore.TableUsers,
		Columns: model.UserColumns,
		Order:   []query.OrderClause{query.Asc("created_at"), query.Asc("username")},
	}, &users)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
