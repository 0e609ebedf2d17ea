package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/abroadportal/internal/server/auth"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
)

const mintedTokenValidity = time.Hour

var errEmptyToken = errors.New("empty token")

// Login redeems a login link. The link or its token may be passed as the
// first argument; otherwise the user is prompted.
func (a *App) Login(ctx context.Context, args []string) error {
	var link string
	if len(args) > 0 {
		link = args[0]
	} else {
		var err error
		link, err = getSimpleText(a.reader, "Paste your login link", a.out)
		if err != nil {
			return err
		}
	}

	token := tokenFromLink(link)
	if token == "" {
		return errEmptyToken
	}

	user, err := a.api.ExchangeLoginLink(ctx, token)
	if err != nil {
		return err
	}
	a.user = user

	fmt.Fprintf(a.out, "Logged in as %v\n", user["email"])
	return nil
}

// Token sets the access token for later calls.
//
//	token                    paste an existing token (no echo)
//	token <user_id> [role]   mint one with the server secret; role defaults to admin
//
// The secret comes from the config or is read from the terminal without echo.
func (a *App) Token(ctx context.Context, args []string) error {
	var (
		token string
		err   error
	)
	if len(args) == 0 {
		token, err = getSecret("Access token", a.out)
	} else {
		token, err = a.mintToken(args)
	}
	if err != nil {
		return err
	}
	if token == "" {
		return errEmptyToken
	}
	a.api.SetAccessToken(token)
	a.user = nil

	fmt.Fprintln(a.out, "Token set")
	return nil
}

func (a *App) mintToken(args []string) (string, error) {
	role := models.RoleAdmin
	if len(args) > 1 {
		role = models.Role(args[1])
	}
	if role != models.RoleAdmin && role != models.RoleStudent {
		return "", fmt.Errorf("unknown role %q", role)
	}

	var secret string
	if a.config != nil {
		secret = a.config.SecretKey
	}
	if secret == "" {
		var err error
		if secret, err = getSecret("Server secret", a.out); err != nil {
			return "", err
		}
	}
	if secret == "" {
		return "", errors.New("empty secret")
	}

	return auth.NewAccessIssuer([]byte(secret), mintedTokenValidity).Issue(args[0], role)
}

func (a *App) Logout(ctx context.Context) error {
	a.api.SetAccessToken("")
	a.user = nil
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
