package seed_test

import (
	"context"
	"testing"

	"serverbook/internal/auth"
	"serverbook/internal/models"
	"serverbook/internal/seed"
	"serverbook/internal/testfixtures"
)

func TestFirstSetupIsIdempotent(t *testing.T) {
	conn := testfixtures.OpenDB(t)
	ctx := context.Background()
	cfg := seed.Admin{Username: "admin", Email: "Admin@System.local", Password: "admin-password"}

	first, err := seed.FirstSetup(ctx, conn, cfg)
	if err != nil {
		t.Fatalf("first setup: %v", err)
	}
	if !first.IsAdmin || first.Email != "admin@system.local" {
		t.Fatalf("unexpected admin: %+v", first)
	}

	cfg.Password = "another-password"
	second, err := seed.FirstSetup(ctx, conn, cfg)
	if err != nil {
		t.Fatalf("second setup: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same account, got %d and %d", first.ID, second.ID)
	}
	if _, err := auth.Authenticate(ctx, conn, "admin", "admin-password"); err != nil {
		t.Fatalf("first password must survive a re-run: %v", err)
	}

	var n int64
	conn.Model(&models.User{}).Count(&n)
	if n != 1 {
		t.Fatalf("expected one user, got %d", n)
	}
}

func TestFirstSetupGeneratesPassword(t *testing.T) {
	conn := testfixtures.OpenDB(t)
	admin, err := seed.FirstSetup(context.Background(), conn, seed.Admin{Username: "root", Email: "root@example.com"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if admin.PasswordHash == "" {
		t.Fatalf("expected a password hash")
	}
	if _, err := seed.FirstSetup(context.Background(), conn, seed.Admin{Username: "", Email: "x@example.com"}); err == nil {
		t.Fatalf("expected missing username to fail")
	}
}
