package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"serverbook/internal/audit"
	"serverbook/internal/auth"
	"serverbook/internal/models"
	"serverbook/internal/testfixtures"
)

const secret = "test-secret"

func TestIssueAndParseToken(t *testing.T) {
	user := &models.User{ID: 7, Username: "alice", IsAdmin: true}
	token, err := auth.IssueToken(secret, user, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := auth.ParseToken(secret, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "alice" || !claims.IsAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := auth.ParseToken("other-secret", token); err == nil {
		t.Fatalf("expected a token signed with another secret to be rejected")
	}

	expired, err := auth.IssueToken(secret, user, time.Now().Add(-2*auth.TokenTTL))
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}
	if _, err := auth.ParseToken(secret, expired); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestAuthenticate(t *testing.T) {
	conn := testfixtures.OpenDB(t)
	user := testfixtures.CreateUser(t, conn)
	ctx := context.Background()

	for _, login := range []string{user.Username, user.Email} {
		got, err := auth.Authenticate(ctx, conn, login, testfixtures.Password)
		if err != nil {
			t.Fatalf("authenticate %q: %v", login, err)
		}
		if got.ID != user.ID {
			t.Fatalf("expected user %d, got %d", user.ID, got.ID)
		}
	}

	cases := []struct{ login, password string }{
		{user.Username, "wrong-password"},
		{"nobody", testfixtures.Password},
		{"", testfixtures.Password},
		{user.Username, ""},
	}
	for _, tc := range cases {
		if _, err := auth.Authenticate(ctx, conn, tc.login, tc.password); !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Fatalf("authenticate(%q, %q): expected ErrInvalidCredentials, got %v", tc.login, tc.password, err)
		}
	}
}

func TestHashPasswordEnforcesLength(t *testing.T) {
	if _, err := auth.HashPassword("short"); !errors.Is(err, auth.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	hash, err := auth.HashPassword("long-enough")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("long-enough")) != nil {
		t.Fatalf("hash does not verify")
	}
}

func TestChangePassword(t *testing.T) {
	conn := testfixtures.OpenDB(t)
	logger := audit.NewLogger(conn, nil)
	user := testfixtures.CreateUser(t, conn)
	ctx := context.Background()

	err := auth.ChangePassword(ctx, conn, logger, user.ID, auth.PasswordChange{Old: "nope-nope", New: "new-password", Confirm: "new-password"})
	if !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected wrong old password to fail, got %v", err)
	}
	err = auth.ChangePassword(ctx, conn, logger, user.ID, auth.PasswordChange{Old: testfixtures.Password, New: "new-password", Confirm: "different"})
	if !errors.Is(err, auth.ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	err = auth.ChangePassword(ctx, conn, logger, user.ID, auth.PasswordChange{Old: testfixtures.Password, New: "short", Confirm: "short"})
	if !errors.Is(err, auth.ErrWeakPassword) {
		t.Fatalf("expected weak password, got %v", err)
	}

	err = auth.ChangePassword(ctx, conn, logger, user.ID, auth.PasswordChange{Old: testfixtures.Password, New: "new-password", Confirm: "new-password"})
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := auth.Authenticate(ctx, conn, user.Username, "new-password"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	var entries []models.AuditLog
	if err := conn.Where("action = ?", audit.ActionChangePassword).Find(&entries).Error; err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one CHANGE_PASSWORD entry, got %d", len(entries))
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := testfixtures.OpenDB(t)
	member := testfixtures.CreateUser(t, conn)
	admin := testfixtures.CreateUser(t, conn, testfixtures.AsAdmin())

	r := gin.New()
	api := r.Group("/", auth.JWT(conn, secret))
	api.GET("/me", func(c *gin.Context) {
		cl, _ := auth.ClaimsFrom(c)
		c.JSON(http.StatusOK, gin.H{"id": cl.UserID})
	})
	api.GET("/admin", auth.RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tokenFor := func(u models.User) string {
		tok, err := auth.IssueToken(secret, &u, time.Now())
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		return tok
	}

	// A token minted while the user was admin loses admin rights once the
	// flag is cleared.
	demoted := testfixtures.CreateUser(t, conn, testfixtures.AsAdmin())
	demotedToken := tokenFor(demoted)
	if err := conn.Model(&models.User{}).Where("id = ?", demoted.ID).Update("is_admin", false).Error; err != nil {
		t.Fatalf("demote: %v", err)
	}

	cases := []struct {
		name   string
		path   string
		header string
		cookie string
		want   int
	}{
		{name: "no token", path: "/me", want: http.StatusUnauthorized},
		{name: "garbage", path: "/me", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "header", path: "/me", header: "Bearer " + tokenFor(member), want: http.StatusOK},
		{name: "cookie", path: "/me", cookie: tokenFor(member), want: http.StatusOK},
		{name: "member on admin route", path: "/admin", header: "Bearer " + tokenFor(member), want: http.StatusForbidden},
		{name: "admin", path: "/admin", header: "Bearer " + tokenFor(admin), want: http.StatusNoContent},
		{name: "demoted admin", path: "/admin", header: "Bearer " + demotedToken, want: http.StatusForbidden},
		{name: "deleted user", path: "/me", header: "Bearer " + tokenFor(models.User{ID: 9999, Username: "ghost"}), want: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tc.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d (%s)", tc.want, w.Code, w.Body.String())
			}
		})
	}
}
