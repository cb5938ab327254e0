package storeapi

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a token.
func (client *Client) Login(ctx context.Context, credentials Credentials) (AuthSession, error) {
	var session AuthSession
	err := client.post(ctx, "/auth/login", credentials, &session)
	return session, err
}

// Register creates an account and logs it in.
func (client *Client) Register(ctx context.Context, registration Registration) (AuthSession, error) {
	var session AuthSession
	err := client.post(ctx, "/auth/register", registration, &session)
	return session, err
}

// Logout revokes token on the server.
func (client *Client) Logout(ctx context.Context, token string) error {
	return client.As(staticToken(token), client.identity).post(ctx, "/auth/logout", nil, nil)
}

// Refresh trades a still-valid token for a fresh one.
func (client *Client) Refresh(ctx context.Context, token string) (AuthSession, error) {
	var session AuthSession
	err := client.As(staticToken(token), client.identity).post(ctx, "/auth/refresh", nil, &session)
	return session, err
}

// Me returns the authenticated customer's profile.
func (client *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := client.get(ctx, "/auth/me", nil, &user)
	return user, err
}

// UpdateProfile edits the authenticated customer's profile.
func (client *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (User, error) {
	var user User
	err := client.do(ctx, http.MethodPut, "/auth/me", nil, update, &user)
	return user, err
}

type staticToken string

func (token staticToken) BearerToken() string {
	return string(token)
}
