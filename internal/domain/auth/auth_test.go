package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if err := CheckPassword(hash, "super-secret"); err != nil {
		t.Fatalf("expected password to match, got %v", err)
	}

	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: "u1", Role: RoleManager, BranchID: "b1"}

	token, err := GenerateToken(secret, claims, time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	parsed, err := ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if parsed.UserID != claims.UserID || parsed.Role != claims.Role || parsed.BranchID != claims.BranchID {
		t.Fatalf("claims mismatch: %+v", parsed)
	}

	if _, err := ParseToken("other-secret", token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestRolePermissionsSubset(t *testing.T) {
	allowed := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		allowed[perm] = struct{}{}
	}

	for role, perms := range RolePermissions {
		if len(perms) == 0 {
			t.Fatalf("role %s has no permissions", role)
		}
		for _, perm := range perms {
			if _, ok := allowed[perm]; !ok {
				t.Fatalf("role %s has unknown permission %s", role, perm)
			}
		}
	}
}

func TestDefaultPermissionsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for _, perm := range DefaultPermissions {
		if _, ok := seen[perm]; ok {
			t.Fatalf("duplicate permission %s", perm)
		}
		seen[perm] = struct{}{}
	}
}

func TestHasPermission(t *testing.T) {
	if !HasPermission(RoleAdmin, PermSheetsFinalize) {
		t.Fatal("expected admin to finalize sheets")
	}
	if HasPermission(RoleOfficer, PermSheetsWrite) {
		t.Fatal("expected officer to be denied sheet edits")
	}
	if HasPermission("ghost", PermOrgRead) {
		t.Fatal("expected unknown role to be denied")
	}
}

type fakeUserStore struct {
	user    User
	created User
}

func (f *fakeUserStore) FindActiveUserByEmail(_ context.Context, email string) (User, error) {
	if email != f.user.Email {
		return User{}, ErrInvalidCredentials
	}
	return f.user, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, user User) (User, error) {
	user.ID = "new-user"
	f.created = user
	return user, nil
}

func (f *fakeUserStore) UpdateLastLogin(context.Context, string) error {
	return nil
}

func TestLogin(t *testing.T) {
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	store := &fakeUserStore{user: User{ID: "u1", Email: "a@b.c", Role: RoleOfficer, PasswordHash: hash}}
	svc := NewService(store, "secret", time.Hour)

	session, err := svc.Login(context.Background(), " a@b.c ", "pw")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	claims, err := ParseToken("secret", session.Token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != RoleOfficer {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := svc.Login(context.Background(), "a@b.c", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	store := &fakeUserStore{}
	svc := NewService(store, "secret", time.Hour)

	if _, err := svc.CreateUser(context.Background(), "x@y.z", "pw", "root", ""); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}

	user, err := svc.CreateUser(context.Background(), "x@y.z", "pw", RoleManager, "b1")
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if user.ID != "new-user" || store.created.PasswordHash == "pw" {
		t.Fatalf("unexpected created user: %+v", store.created)
	}
}
