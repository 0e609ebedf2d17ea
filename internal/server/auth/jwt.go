// Package auth issues and verifies the HS256 tokens used by the portal:
// access tokens for API calls and short-lived login links sent to students.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	PurposeAccess    = "access"
	PurposeLoginLink = "login_link"
)

// Claims carries the subject and what the token may be used for.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string      `json:"uid"`
	Role    models.Role `json:"role,omitempty"`
	Purpose string      `json:"purpose"`
}

func GenerateToken(userID string, role models.Role, purpose string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:  userID,
		Role:    role,
		Purpose: purpose,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature, expiry and purpose of tokenString.
func ParseToken(tokenString string, secretKey []byte, purpose string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: unexpected purpose %q", common.ErrInvalidToken, claims.Purpose)
	}

	return claims, nil
}
