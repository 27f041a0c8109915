package service

import (
	"context"
	"errors"
	"testing"

	"github.com/642studio/bachejoa/internal/model"
)

func newTestUsers(t *testing.T) *UserService {
	t.Helper()
	return NewUserService(newTestStore(t), NewPasswordHasher(), discardLogger())
}

func TestRegisterValidation(t *testing.T) {
	users := newTestUsers(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      RegisterInput
		wantMsg string
	}{
		{"short username", RegisterInput{Username: " ab ", Email: "a@example.com", Password: "hunter2pass"}, "Username inválido."},
		{"long username", RegisterInput{Username: "abcdefghijklmnopqrstuvwxyz12345", Email: "a@example.com", Password: "hunter2pass"}, "Username inválido."},
		{"email without at", RegisterInput{Username: "ana", Email: "ana.example.com", Password: "hunter2pass"}, "Correo inválido."},
		{"short password", RegisterInput{Username: "ana", Email: "ana@example.com", Password: "  short7  "}, "La contraseña debe tener al menos 8 caracteres."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.Register(ctx, tt.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", verr.Message, tt.wantMsg)
			}
		})
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	users := newTestUsers(t)
	ctx := context.Background()

	u, err := users.Register(ctx, RegisterInput{Username: "  Ana ", Email: " Ana@Example.COM ", Password: "hunter2pass"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Username != "Ana" || u.Email != "ana@example.com" || u.Role != model.RoleCitizen {
		t.Errorf("registered %+v", u)
	}
	if u.AvatarKey != nil {
		t.Errorf("AvatarKey = %v, want nil", *u.AvatarKey)
	}

	for _, ident := range []string{"ana@example.com", " ANA@example.com", "ana", "ANA"} {
		got, err := users.Authenticate(ctx, ident, "hunter2pass")
		if err != nil {
			t.Errorf("Authenticate(%q): %v", ident, err)
			continue
		}
		if got.ID != u.ID {
			t.Errorf("Authenticate(%q) returned user %s, want %s", ident, got.ID, u.ID)
		}
	}

	if _, err := users.Authenticate(ctx, "ana", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := users.Authenticate(ctx, "nobody", "hunter2pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v, want ErrInvalidCredentials", err)
	}
	var verr *ValidationError
	if _, err := users.Authenticate(ctx, " ", "hunter2pass"); !errors.As(err, &verr) {
		t.Errorf("blank identifier: got %v, want ValidationError", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	users := newTestUsers(t)
	ctx := context.Background()

	if _, err := users.Register(ctx, RegisterInput{Username: "ana", Email: "ana@example.com", Password: "hunter2pass"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	dupes := []RegisterInput{
		{Username: "ana", Email: "other@example.com", Password: "hunter2pass"},
		{Username: "otra", Email: "ANA@example.com", Password: "hunter2pass"},
	}
	for _, in := range dupes {
		if _, err := users.Register(ctx, in); !errors.Is(err, ErrUserExists) {
			t.Errorf("Register(%+v) = %v, want ErrUserExists", in, err)
		}
	}
}

func TestAuthenticateStoreDown(t *testing.T) {
	users := NewUserService(failingStore{}, NewPasswordHasher(), discardLogger())
	if _, err := users.Authenticate(context.Background(), "ana", "hunter2pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestUpdateAvatar(t *testing.T) {
	users := newTestUsers(t)
	ctx := context.Background()
	u, err := users.Register(ctx, RegisterInput{Username: "ana", Email: "ana@example.com", Password: "hunter2pass"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	var verr *ValidationError
	if _, err := users.UpdateAvatar(ctx, u.ID, "krusty.svg"); !errors.As(err, &verr) || verr.Message != "Avatar inválido." {
		t.Errorf("invalid avatar: got %v", err)
	}

	got, err := users.UpdateAvatar(ctx, u.ID, " lisa.svg ")
	if err != nil {
		t.Fatalf("UpdateAvatar: %v", err)
	}
	if got.AvatarKey == nil || *got.AvatarKey != "lisa.svg" {
		t.Errorf("AvatarKey = %v, want lisa.svg", got.AvatarKey)
	}
}

func TestSetRoleAndList(t *testing.T) {
	users := newTestUsers(t)
	ctx := context.Background()
	for _, name := range []string{"ana", "beto"} {
		if _, err := users.Register(ctx, RegisterInput{Username: name, Email: name + "@example.com", Password: "hunter2pass"}); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	u, err := users.SetRole(ctx, "Beto", model.RoleAdmin)
	if err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if !IsAdmin(u) {
		t.Errorf("user %s should be admin", u.Username)
	}
	if _, err := users.SetRole(ctx, "nobody", model.RoleAdmin); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: got %v", err)
	}
	var verr *ValidationError
	if _, err := users.SetRole(ctx, "ana", "root"); !errors.As(err, &verr) {
		t.Errorf("unknown role: got %v", err)
	}

	list, err := users.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List returned %d users, want 2", len(list))
	}
	roles := map[string]string{}
	for _, u := range list {
		roles[u.Username] = u.Role
	}
	if roles["ana"] != model.RoleCitizen || roles["beto"] != model.RoleAdmin {
		t.Errorf("roles = %v", roles)
	}
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name string
		user *model.User
		want bool
	}{
		{"anonymous", nil, false},
		{"citizen", &model.User{Role: model.RoleCitizen}, false},
		{"admin", &model.User{Role: model.RoleAdmin}, true},
		{"case matters", &model.User{Role: "Admin"}, false},
		{"empty role", &model.User{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAdmin(tt.user); got != tt.want {
				t.Errorf("IsAdmin = %v, want %v", got, tt.want)
			}
		})
	}
}
