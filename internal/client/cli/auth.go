package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/client/client"
	"github.com/dmitrijs2005/demoauth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials and opens a session. The password buffer is
// wiped before returning.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if email == "" {
		return client.ErrInvalidInput
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.client.Login(ctx, email, string(password)); err != nil {
		switch {
		case errors.Is(err, client.ErrUnauthorized):
			return errors.New("invalid email or password")
		case errors.Is(err, client.ErrEmailNotConfirmed):
			return errors.New("please confirm your email before logging in")
		}
		return err
	}

	a.userName = email
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// Refresh rotates the session's refresh token.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.client.Refresh(ctx); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.userName = ""
			return errors.New("session is no longer valid, please log in again")
		}
		return err
	}
	fmt.Fprintln(a.out, "Tokens refreshed")
	return nil
}

// WhoAmI prints the principal the server sees for the current access token.
func (a *App) WhoAmI(ctx context.Context) error {
	who, err := a.client.WhoAmI(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "user:         %s\n", who.UserID)
	fmt.Fprintf(a.out, "email:        %s\n", who.Email)
	fmt.Fprintf(a.out, "organization: %s\n", who.OrganizationID)
	fmt.Fprintf(a.out, "role:         %s\n", who.Role)
	if who.ExpiresAt > 0 {
		fmt.Fprintf(a.out, "expires:      %s\n", time.Unix(who.ExpiresAt, 0).UTC().Format(time.RFC3339))
	}
	return nil
}

// Logout ends the session. Local tokens are dropped even if the server could
// not be reached.
func (a *App) Logout(ctx context.Context) error {
	err := a.client.Logout(ctx)
	a.userName = ""
	if err != nil && !errors.Is(err, client.ErrNotLoggedIn) {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
