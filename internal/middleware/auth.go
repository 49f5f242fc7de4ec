package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"dinehall-pos-service/internal/auth"

	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const authContextKey contextKey = "authContext"

type AuthContext struct {
	UserID       int64
	SessionID    int64
	Role         auth.StaffRole
	RestaurantID int64
}

func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	value := ctx.Value(authContextKey)
	if value == nil {
		return nil, false
	}
	ac, ok := value.(*AuthContext)
	return ac, ok
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   "UNAUTHORIZED",
		"message": message,
	})
}

// StaffAuth verifies the bearer token and checks the staff member is still
// active at the restaurant the token claims. The restaurant id it installs in
// the context is the tenant boundary every handler query filters on.
func StaffAuth(db *pgxpool.Pool, jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			claims, err := auth.VerifyAccessToken(token, jwtSecret)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			userID, err := parseInt64(claims.UserID)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			sessionID, err := parseInt64(claims.SessionID)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			restaurantID, err := parseInt64(claims.RestaurantID)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Restaurant not found")
				return
			}

			var (
				role             string
				staffActive      bool
				restaurantActive bool
			)
			err = db.QueryRow(r.Context(), `
				select s.role, s.is_active, rst.is_active
				from staff s
				join restaurants rst on rst.id = s.restaurant_id
				where s.id = $1 and s.restaurant_id = $2
			`, userID, restaurantID).Scan(&role, &staffActive, &restaurantActive)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Staff access required")
				return
			}

			if !staffActive {
				writeAuthError(w, http.StatusForbidden, "Staff access is disabled")
				return
			}
			if !restaurantActive {
				writeAuthError(w, http.StatusForbidden, "Restaurant is currently disabled")
				return
			}

			authCtx := &AuthContext{
				UserID:       userID,
				SessionID:    sessionID,
				Role:         auth.StaffRole(role),
				RestaurantID: restaurantID,
			}

			ctx := WithAuthContext(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseInt64(value string) (int64, error) {
	return strconv.ParseInt(value, 10, 64)
}
