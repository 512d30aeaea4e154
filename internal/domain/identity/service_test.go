package identity

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinicore/clinicore/internal/platform/apperror"
)

type fakeRepo struct {
	byEmail  map[string]*User
	byID     map[uuid.UUID]*User
	failWith error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byEmail: make(map[string]*User),
		byID:    make(map[uuid.UUID]*User),
	}
}

func (r *fakeRepo) Create(_ context.Context, u *User) error {
	if r.failWith != nil {
		return r.failWith
	}
	u.ID = uuid.New()
	r.byEmail[u.Email] = u
	r.byID[u.ID] = u
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var users []*User
	for _, u := range r.byID {
		users = append(users, u)
	}
	return users, len(users), nil
}

func TestRegister_CreatesUserRole(t *testing.T) {
	svc := NewService(newFakeRepo())

	u, err := svc.Register(context.Background(), RegisterInput{
		Name: "Jane Doe", Email: "Jane@Example.com", Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if u.Role != RoleUser {
		t.Errorf("role = %q, want %q", u.Role, RoleUser)
	}
	if u.Email != "jane@example.com" {
		t.Errorf("email not lowercased: %q", u.Email)
	}
	if u.PasswordHash == "secret123" || u.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret123")) != nil {
		t.Error("stored hash does not match the password")
	}
}

func TestRegister_ValidationMessages(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Register(context.Background(), RegisterInput{})

	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.Error, got %v", err)
	}
	if appErr.Kind != apperror.KindValidation {
		t.Fatalf("kind = %v, want validation", appErr.Kind)
	}
	want := []string{"Please add a name", "Please add an email", "Please add a password"}
	if !reflect.DeepEqual(appErr.Fields, want) {
		t.Errorf("fields = %v, want %v", appErr.Fields, want)
	}
}

func TestRegister_InvalidEmailAndShortPassword(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "Jane", Email: "not-an-email", Password: "abc",
	})

	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.Error, got %v", err)
	}
	want := []string{"Please add a valid email", "Password must be at least 6 characters"}
	if !reflect.DeepEqual(appErr.Fields, want) {
		t.Errorf("fields = %v, want %v", appErr.Fields, want)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := NewService(newFakeRepo())

	in := RegisterInput{Name: "Jane", Email: "jane@example.com", Password: "secret123"}
	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	_, err := svc.Register(context.Background(), in)
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.Error, got %v", err)
	}
	if appErr.Kind != apperror.KindDuplicate {
		t.Errorf("kind = %v, want duplicate", appErr.Kind)
	}
	if appErr.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", appErr.Status)
	}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newFakeRepo())
	if _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Jane", Email: "jane@example.com", Password: "secret123",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	u, err := svc.Authenticate(context.Background(), "jane@example.com", "secret123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.Email != "jane@example.com" {
		t.Errorf("unexpected user %+v", u)
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	svc := NewService(newFakeRepo())
	if _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Jane", Email: "jane@example.com", Password: "secret123",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, tc := range []struct{ email, password string }{
		{"jane@example.com", "wrong-password"},
		{"nobody@example.com", "secret123"},
	} {
		_, err := svc.Authenticate(context.Background(), tc.email, tc.password)
		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			t.Fatalf("Authenticate(%s): expected *apperror.Error, got %v", tc.email, err)
		}
		if appErr.Status != http.StatusUnauthorized {
			t.Errorf("Authenticate(%s): status = %d, want 401", tc.email, appErr.Status)
		}
		if appErr.Message != "Invalid credentials" {
			t.Errorf("Authenticate(%s): message = %q", tc.email, appErr.Message)
		}
	}
}

func TestResolveIdentity(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	u, err := svc.Register(context.Background(), RegisterInput{
		Name: "Jane", Email: "jane@example.com", Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	identity, err := svc.ResolveIdentity(context.Background(), u.ID.String())
	if err != nil {
		t.Fatalf("ResolveIdentity: %v", err)
	}
	if identity == nil || identity.Email != "jane@example.com" || identity.Role != RoleUser {
		t.Errorf("unexpected identity %+v", identity)
	}
}

func TestResolveIdentity_DeletedAccount(t *testing.T) {
	svc := NewService(newFakeRepo())

	identity, err := svc.ResolveIdentity(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("ResolveIdentity: %v", err)
	}
	if identity != nil {
		t.Errorf("expected nil identity for unknown account, got %+v", identity)
	}
}

func TestResolveIdentity_MalformedSubject(t *testing.T) {
	svc := NewService(newFakeRepo())

	identity, err := svc.ResolveIdentity(context.Background(), "not-a-uuid")
	if err != nil {
		t.Fatalf("ResolveIdentity: %v", err)
	}
	if identity != nil {
		t.Errorf("expected nil identity for malformed subject, got %+v", identity)
	}
}
