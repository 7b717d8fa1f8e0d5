// internal/handlers/guest.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/huex/liarbar/internal/auth"
	"github.com/huex/liarbar/internal/database"
	"github.com/huex/liarbar/internal/models"
)

// EnsureGuestUser resolves the caller's identity from the auth_token cookie,
// minting a fresh ephemeral guest (and cookie) when the cookie is absent or
// invalid. When a database is configured the guest gets a row so its display
// name outlives this connection; otherwise identity is memory-only.
func EnsureGuestUser(w http.ResponseWriter, r *http.Request) (*models.User, error) {
	cookieHeader := r.Header.Get("Cookie")
	if strings.Contains(cookieHeader, "auth_token=") {
		token := extractCookieToken(cookieHeader, "auth_token")
		sub, err := auth.AuthenticateJWT(token)
		if err == nil {
			if id, parseErr := uuid.Parse(sub); parseErr == nil {
				return lookupUser(id), nil
			}
		}
		// Fall through to a fresh guest on any token problem.
	}
	return newGuestUser(w)
}

func newGuestUser(w http.ResponseWriter) (*models.User, error) {
	user := &models.User{Username: "Guest", IsEphemeral: true}
	if database.DB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create guest user: %w", err)
		}
	} else {
		user.ID = uuid.New()
	}

	token, err := auth.CreateJWT(user.ID.String())
	if err != nil {
		return nil, fmt.Errorf("create guest JWT: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return user, nil
}

// lookupUser fetches the user row for a verified token subject. Without a
// database, or when the row is gone, the identity is kept but the stored
// name is not.
func lookupUser(id uuid.UUID) *models.User {
	if database.DB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if u, err := database.GetUserByID(ctx, id); err == nil {
			return u
		}
	}
	return &models.User{ID: id, IsEphemeral: true}
}

// extractCookieToken pulls a named cookie value from a Cookie header.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}
