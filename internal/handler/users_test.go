package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/merenda/planning-api/internal/capability"
	"github.com/merenda/planning-api/internal/database"
	"github.com/merenda/planning-api/internal/enum"
	"github.com/merenda/planning-api/internal/handler"
	"github.com/merenda/planning-api/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

type mockUserAdminStore struct {
	listUsersFn      func(ctx context.Context) ([]database.User, error)
	createUserFn     func(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	updateUserFn     func(ctx context.Context, arg database.UpdateUserParams) (database.User, error)
	softDeleteUserFn func(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

func (m *mockUserAdminStore) ListUsers(ctx context.Context) ([]database.User, error) {
	return m.listUsersFn(ctx)
}
func (m *mockUserAdminStore) CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
	return m.createUserFn(ctx, arg)
}
func (m *mockUserAdminStore) UpdateUser(ctx context.Context, arg database.UpdateUserParams) (database.User, error) {
	return m.updateUserFn(ctx, arg)
}
func (m *mockUserAdminStore) SoftDeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	return m.softDeleteUserFn(ctx, id)
}

func userRouter(store handler.UserStore) chi.Router {
	h := handler.NewUserHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testSecret))
	r.Group(func(ar chi.Router) {
		ar.Use(middleware.RequireCapability(capability.ScreenAdmin, capability.ActionManage))
		ar.Route("/users", h.RegisterRoutes)
	})
	return r
}

func TestCreateUser_HashesPassword(t *testing.T) {
	var got database.CreateUserParams
	store := &mockUserAdminStore{
		createUserFn: func(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
			got = arg
			return database.User{ID: uuid.New(), Email: arg.Email, FullName: arg.FullName, Role: arg.Role, IsActive: true}, nil
		},
	}
	r := userRouter(store)

	rr := doJSON(t, r, "POST", "/users", tokenFor(t, enum.RoleAdmin), map[string]string{
		"email":     "nutri@merenda.local",
		"password":  "secret123",
		"full_name": "Nova Nutricionista",
		"role":      enum.RoleNutritionist,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if got.HashedPassword == "secret123" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(got.HashedPassword), []byte("secret123")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	resp := decodeResponse(t, rr)
	if _, leaked := resp["hashed_password"]; leaked {
		t.Error("response leaks hashed_password")
	}
}

func TestCreateUser_Validation(t *testing.T) {
	r := userRouter(&mockUserAdminStore{})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing fields", map[string]string{"email": "a@b.c"}},
		{"bad email", map[string]string{"email": "nope", "password": "x", "full_name": "N", "role": enum.RoleAdmin}},
		{"unknown role", map[string]string{"email": "a@b.c", "password": "x", "full_name": "N", "role": "MANAGER"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, r, "POST", "/users", tokenFor(t, enum.RoleAdmin), tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store := &mockUserAdminStore{
		createUserFn: func(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
			return database.User{}, &pgconn.PgError{Code: "23505"}
		},
	}
	r := userRouter(store)

	rr := doJSON(t, r, "POST", "/users", tokenFor(t, enum.RoleAdmin), map[string]string{
		"email": "dup@merenda.local", "password": "x", "full_name": "Dup", "role": enum.RoleLogistics,
	})
	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestListUsers_NonAdminForbidden(t *testing.T) {
	r := userRouter(&mockUserAdminStore{})

	for _, role := range []string{enum.RoleNutritionist, enum.RoleCoordination, enum.RoleLogistics} {
		rr := doJSON(t, r, "GET", "/users", tokenFor(t, role), nil)
		if rr.Code != http.StatusForbidden {
			t.Errorf("%s: got %d, want %d", role, rr.Code, http.StatusForbidden)
		}
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	store := &mockUserAdminStore{
		softDeleteUserFn: func(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
			return uuid.Nil, pgx.ErrNoRows
		},
	}
	r := userRouter(store)

	rr := doJSON(t, r, "DELETE", "/users/"+uuid.NewString(), tokenFor(t, enum.RoleAdmin), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
