package identity_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/riwart/taskr/internal/identity"
	"github.com/riwart/taskr/internal/model"
	"github.com/riwart/taskr/internal/store/memorystore"
)

func newService(t *testing.T) (*identity.Service, *memorystore.UserStore) {
	t.Helper()
	repo := memorystore.NewUserStore()
	return identity.NewService(repo, identity.NewBcryptHasher(bcrypt.MinCost)), repo
}

func richard() identity.RegisterInput {
	return identity.RegisterInput{
		Name:     "richardtest",
		Email:    "r@x.com",
		Password: "pw",
		Confirm:  "pw",
	}
}

func TestRegister(t *testing.T) {
	svc, _ := newService(t)

	u, err := svc.Register(context.Background(), richard())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID == 0 {
		t.Fatalf("expected id")
	}
	if u.Role != model.RoleUser {
		t.Fatalf("role=%q want user", u.Role)
	}
	if u.PasswordHash == "" || u.PasswordHash == "pw" {
		t.Fatalf("password must be stored hashed, got %q", u.PasswordHash)
	}
}

func TestRegister_DuplicateIdentity(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, richard()); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := svc.Register(ctx, richard())
	if !errors.Is(err, model.ErrDuplicateIdentity) {
		t.Fatalf("err=%v want ErrDuplicateIdentity", err)
	}

	users, _ := repo.List(ctx)
	if len(users) != 1 {
		t.Fatalf("expected exactly one user, got %d", len(users))
	}
}

func TestRegister_DuplicateEmailOnly(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, richard()); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	other := richard()
	other.Name = "someoneelse"
	if _, err := svc.Register(ctx, other); !errors.Is(err, model.ErrDuplicateIdentity) {
		t.Fatalf("err=%v want ErrDuplicateIdentity", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*identity.RegisterInput)
		wantField string
	}{
		{"short name", func(in *identity.RegisterInput) { in.Name = "foo" }, "name"},
		{"long name", func(in *identity.RegisterInput) { in.Name = strings.Repeat("a", 26) }, "name"},
		{"missing email", func(in *identity.RegisterInput) { in.Email = "" }, "email"},
		{"bad email", func(in *identity.RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"missing password", func(in *identity.RegisterInput) { in.Password, in.Confirm = "", "" }, "password"},
		{"confirm mismatch", func(in *identity.RegisterInput) { in.Confirm = "other" }, "confirm"},
		{"password too long", func(in *identity.RegisterInput) { in.Password, in.Confirm = strings.Repeat("a", 41), strings.Repeat("a", 41) }, "password"},
		{"password over 72 bytes", func(in *identity.RegisterInput) { in.Password, in.Confirm = strings.Repeat("é", 40), strings.Repeat("é", 40) }, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newService(t)
			in := richard()
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), in)

			var verr *model.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := verr.Fields[tt.wantField]; !ok {
				t.Fatalf("expected error on %s, got %v", tt.wantField, verr.Fields)
			}
			if users, _ := repo.List(context.Background()); len(users) != 0 {
				t.Fatalf("no user should be created")
			}
		})
	}
}

func TestCreateAdmin(t *testing.T) {
	svc, _ := newService(t)

	u, err := svc.CreateAdmin(context.Background(), identity.RegisterInput{
		Name:     "Superman",
		Email:    "superman@example.org",
		Password: "allpowerful",
		Confirm:  "allpowerful",
	})
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if u.Role != model.RoleAdmin {
		t.Fatalf("role=%q want admin", u.Role)
	}
}

func TestFindByCredentials(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, richard())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	u, ok, err := svc.FindByCredentials(ctx, "richardtest", "pw")
	if err != nil || !ok {
		t.Fatalf("valid credentials: ok=%v err=%v", ok, err)
	}
	if u.ID != registered.ID {
		t.Fatalf("id=%d want %d", u.ID, registered.ID)
	}

	tests := []struct {
		name     string
		user     string
		password string
	}{
		{"wrong password", "richardtest", "wrong"},
		{"unknown user", "foo", "bar"},
		{"script as name", `alert("alert box!");`, "foo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, ok, err := svc.FindByCredentials(ctx, tt.user, tt.password)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok || u.ID != 0 {
				t.Fatalf("expected no match, got ok=%v user=%+v", ok, u)
			}
		})
	}
}

func TestBcryptHasher(t *testing.T) {
	h := identity.NewBcryptHasher(bcrypt.MinCost)

	digest, err := h.Hash("python")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !h.Verify("python", digest) {
		t.Fatalf("Verify should accept the right password")
	}
	if h.Verify("python2", digest) {
		t.Fatalf("Verify should reject a wrong password")
	}
	if h.Verify("python", "not-a-bcrypt-digest") {
		t.Fatalf("Verify should reject a malformed digest")
	}

	if got := identity.NewBcryptHasher(0).Cost; got != bcrypt.DefaultCost {
		t.Fatalf("out of range cost should fall back to default, got %d", got)
	}
}
