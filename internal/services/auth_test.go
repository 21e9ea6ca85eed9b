package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/conceptbridge/conceptbridge-backend/internal/config"
	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos"
	"github.com/conceptbridge/conceptbridge-backend/internal/data/repos/testutil"
	pkgerrors "github.com/conceptbridge/conceptbridge-backend/internal/pkg/errors"
)

func newAuth(tb testing.TB, db *gorm.DB) AuthService {
	tb.Helper()
	log := testutil.Logger(tb)
	cfg := config.AuthConfig{JWTSecretKey: "test-secret", AccessTokenTTL: 3600}
	return NewAuthService(db, repos.NewUserRepo(db, log), cfg, log)
}

func TestRegisterLoginAndParseToken(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	svc := newAuth(t, db)

	reg, err := svc.Register(ctx, RegisterRequest{
		Email:     "ann@example.org",
		Password:  "hunter22",
		FirstName: "Ann",
		LastName:  "Author",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.AccessToken == "" {
		t.Fatal("no token issued on register")
	}
	if reg.User.Password == "hunter22" {
		t.Fatal("password stored in clear")
	}

	login, err := svc.Login(ctx, "ann@example.org", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := svc.ParseToken(login.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != reg.User.ID || claims.Email != "ann@example.org" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	svc := newAuth(t, db)
	if _, err := svc.Register(ctx, RegisterRequest{Email: "ann@example.org", Password: "hunter22", FirstName: "Ann", LastName: "Author"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Login(ctx, "ann@example.org", "wrong"); !errors.Is(err, pkgerrors.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	svc := newAuth(t, db)
	req := RegisterRequest{Email: "ann@example.org", Password: "hunter22", FirstName: "Ann", LastName: "Author"}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, req); err == nil {
		t.Fatal("duplicate email accepted")
	}
}

func TestParseTokenRejectsForgedSignature(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	issuer := newAuth(t, db)
	reg, err := issuer.Register(ctx, RegisterRequest{Email: "ann@example.org", Password: "hunter22", FirstName: "Ann", LastName: "Author"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	log := testutil.Logger(t)
	verifier := NewAuthService(db, repos.NewUserRepo(db, log),
		config.AuthConfig{JWTSecretKey: "other-secret", AccessTokenTTL: 3600}, log)
	if _, err := verifier.ParseToken(reg.AccessToken); err == nil {
		t.Fatal("token signed with a different key accepted")
	}
}
