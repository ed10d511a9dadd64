package identity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token claims the room client cares about
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller as seen by the client
type Identity struct {
	UserID int64
	Email  string
	Name   string
	Role   string
}

// FromAccessToken extracts the caller identity from a bearer access token.
// The signature is not checked here; the backend verifies every request and
// the client only needs its own claims to address them.
func FromAccessToken(token string) (*Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, fmt.Errorf("access token is empty")
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}

	userID := claims.UserID
	if userID == 0 && claims.Subject != "" {
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("access token has no usable user id")
		}
		userID = id
	}
	if userID == 0 {
		return nil, fmt.Errorf("access token has no usable user id")
	}

	return &Identity{
		UserID: userID,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   claims.Role,
	}, nil
}
