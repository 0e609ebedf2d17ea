package auth

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/abroadportal/internal/server/models"
)

// LinkIssuer mints magic login links. Links are stateless and may be
// redeemed more than once until they expire.
type LinkIssuer struct {
	secret   []byte
	validity time.Duration
	baseURL  string
}

func NewLinkIssuer(secret []byte, validity time.Duration, baseURL string) *LinkIssuer {
	return &LinkIssuer{secret: secret, validity: validity, baseURL: baseURL}
}

// Issue returns baseURL with a login_link token attached as ?token=.
func (l *LinkIssuer) Issue(userID string) (string, error) {
	tok, err := GenerateToken(userID, "", PurposeLoginLink, l.secret, l.validity)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(l.baseURL)
	if err != nil {
		return "", fmt.Errorf("login link base url: %w", err)
	}
	q := u.Query()
	q.Set("token", tok)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Redeem validates a login link token and returns the user it was minted for.
func (l *LinkIssuer) Redeem(token string) (string, error) {
	claims, err := ParseToken(token, l.secret, PurposeLoginLink)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// AccessIssuer mints API access tokens.
type AccessIssuer struct {
	secret   []byte
	validity time.Duration
}

func NewAccessIssuer(secret []byte, validity time.Duration) *AccessIssuer {
	return &AccessIssuer{secret: secret, validity: validity}
}

func (a *AccessIssuer) Issue(userID string, role models.Role) (string, error) {
	return GenerateToken(userID, role, PurposeAccess, a.secret, a.validity)
}

func (a *AccessIssuer) Parse(token string) (*Claims, error) {
	return ParseToken(token, a.secret, PurposeAccess)
}
