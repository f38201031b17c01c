package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/homeserve/homeserve-api/internal/domain/user"
	"github.com/homeserve/homeserve-api/internal/pkg/jwt"
	"github.com/homeserve/homeserve-api/internal/pkg/password"
)

type fakeUserStore struct {
	created *user.User
	byEmail *user.User
	byID    *user.User
}

func (f *fakeUserStore) Create(ctx context.Context, u *user.User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	f.created = u
	f.byID = u
	f.byEmail = u
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if f.byID != nil && f.byID.ID == id {
		return f.byID, nil
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if f.byEmail != nil && f.byEmail.Email == email {
		return f.byEmail, nil
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUserStore) CountReferred(ctx context.Context, referrerID uuid.UUID) (int, error) {
	return 0, nil
}

type fakeWalletStore struct {
	ensured map[uuid.UUID]bool
	balance int64
}

func (f *fakeWalletStore) EnsureWallet(ctx context.Context, userID uuid.UUID) error {
	if f.ensured == nil {
		f.ensured = map[uuid.UUID]bool{}
	}
	f.ensured[userID] = true
	return nil
}

func (f *fakeWalletStore) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return f.balance, nil
}

func newTestService(users *fakeUserStore, wallets *fakeWalletStore) *Service {
	jwtService := jwt.NewService("secret", time.Minute, time.Hour)
	return NewService(users, wallets, jwtService, nil)
}

func TestRegisterSuccess(t *testing.T) {
	users := &fakeUserStore{}
	wallets := &fakeWalletStore{}
	svc := newTestService(users, wallets)

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Name: "Asha", Email: "New@Example.com", Password: "password123",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if users.created == nil {
		t.Fatal("expected user to be created")
	}
	if users.created.Email != "new@example.com" {
		t.Fatalf("expected normalized email, got %q", users.created.Email)
	}
	if users.created.Role != user.RoleUser {
		t.Fatalf("expected default role USER, got %s", users.created.Role)
	}
	if len(users.created.ReferralCode) != 8 {
		t.Fatalf("expected 8-char referral code, got %q", users.created.ReferralCode)
	}
	if !wallets.ensured[users.created.ID] {
		t.Fatal("expected wallet provisioned at signup")
	}
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if resp.User.ReferralCode != users.created.ReferralCode {
		t.Fatal("expected referral code in response")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	existing := &user.User{ID: uuid.New(), Email: "taken@example.com"}
	users := &fakeUserStore{byEmail: existing}
	svc := newTestService(users, &fakeWalletStore{})

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Name: "Dup", Email: "taken@example.com", Password: "password123",
	})
	if err != ErrEmailAlreadyExists {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	svc := newTestService(&fakeUserStore{}, &fakeWalletStore{})

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Name: "Eve", Email: "eve@example.com", Password: "password123", Role: "ADMIN",
	})
	if err != ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	hash, _ := password.Hash("password123")
	u := &user.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: hash, Role: user.RoleUser, ReferralCode: "ABCD2345", CreatedAt: time.Now()}
	users := &fakeUserStore{byEmail: u, byID: u}
	svc := newTestService(users, &fakeWalletStore{})

	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "User@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("expected login success, got %v", err)
	}
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatal("expected tokens")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	hash, _ := password.Hash("password123")
	u := &user.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: hash}
	users := &fakeUserStore{byEmail: u, byID: u}
	svc := newTestService(users, &fakeWalletStore{})

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "user@example.com", Password: "wrong"})
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newTestService(&fakeUserStore{}, &fakeWalletStore{})

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "nobody@example.com", Password: "password123"})
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRefreshWithoutRedis(t *testing.T) {
	hash, _ := password.Hash("password123")
	u := &user.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: hash}
	users := &fakeUserStore{byEmail: u, byID: u}
	svc := newTestService(users, &fakeWalletStore{})

	loginResp, err := svc.Login(context.Background(), &LoginRequest{Email: u.Email, Password: "password123"})
	if err != nil {
		t.Fatalf("login err: %v", err)
	}

	// Without Redis the stored hash cannot be checked, so refresh is denied.
	if _, err := svc.Refresh(context.Background(), loginResp.Tokens.RefreshToken); err != ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	svc := newTestService(&fakeUserStore{}, &fakeWalletStore{})

	if _, err := svc.Refresh(context.Background(), "not-a-jwt"); err != ErrInvalidRefreshToken {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), ""); err != ErrRefreshTokenRequired {
		t.Fatalf("expected ErrRefreshTokenRequired, got %v", err)
	}
}

func TestGetCurrentUser(t *testing.T) {
	u := &user.User{ID: uuid.New(), Name: "Asha", Email: "user@example.com", Role: user.RoleUser, ReferralCode: "ABCD2345", CreatedAt: time.Now()}
	users := &fakeUserStore{byID: u}
	wallets := &fakeWalletStore{balance: 150}
	svc := newTestService(users, wallets)

	me, err := svc.GetCurrentUser(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if me.WalletBalance != 150 {
		t.Fatalf("expected balance 150, got %d", me.WalletBalance)
	}
	if me.ReferralCode != "ABCD2345" {
		t.Fatalf("expected referral code in profile, got %q", me.ReferralCode)
	}
}

func TestGetCurrentUserNotFound(t *testing.T) {
	svc := newTestService(&fakeUserStore{}, &fakeWalletStore{})

	if _, err := svc.GetCurrentUser(context.Background(), uuid.New()); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
