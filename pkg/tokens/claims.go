package tokens

import "github.com/golang-jwt/jwt/v5"

type AccessClaims struct {
	Role      string `json:"role"`
	Username  string `json:"username"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}
