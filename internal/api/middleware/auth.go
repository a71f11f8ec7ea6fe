package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"algoarena/internal/common"
	"algoarena/internal/common/security"
	"algoarena/internal/domain/model"
	"algoarena/internal/domain/repository"
)

type contextKey string

const userCtxKey contextKey = "authedUser"

// Auth verifies the session token and refreshes the user from the store on
// every request, so role changes take effect without waiting for token
// expiry.
type Auth struct {
	userRepo repository.UserRepository
}

func NewAuth(userRepo repository.UserRepository) *Auth {
	return &Auth{userRepo: userRepo}
}

func (a *Auth) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context()) // Extracts token placed by the Verifier
		if err != nil || token == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}

		userID, err := security.UserIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
			return
		}

		user, err := a.userRepo.FindByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				common.RespondWithError(w, http.StatusUnauthorized, "Unknown user")
				return
			}
			common.RespondWithError(w, http.StatusInternalServerError, "Failed to load user")
			return
		}
		user.HashedPassword = ""

		ctx := context.WithValue(r.Context(), userCtxKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || user.Role != model.RoleAdmin {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext returns the authenticated user placed by Authenticator.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userCtxKey).(*model.User)
	return user, ok
}
