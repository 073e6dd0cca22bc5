package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	apperrors "github.com/receipttrack/receipttrack-go/internal/errors"
)

// Endpoints that must never carry a bearer credential: they establish or
// renew credentials themselves, or are open to anonymous callers.
const (
	LoginPath          = "/auth/login"
	RefreshPath        = "/auth/refresh"
	PublicRegisterPath = "/auth/register/public"
)

// IsCredentialEndpoint reports whether path is one of the endpoints the
// request authorizer must skip.
func IsCredentialEndpoint(path string) bool {
	return strings.HasSuffix(path, LoginPath) ||
		strings.HasSuffix(path, RefreshPath) ||
		strings.HasSuffix(path, PublicRegisterPath)
}

// Login exchanges a username and password for a token pair. The returned
// token's Expiry is zero; callers derive it from the access token itself.
func (c *Client) Login(ctx context.Context, username, password string) (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)

	req, err := c.newRequest(ctx, http.MethodPost, LoginPath, nil, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}

	var tok oauth2.Token
	if err := c.send(req, &tok); err != nil {
		if apperrors.Is(err, apperrors.ErrNotAuthenticated) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "[Client.Login]")
	}
	return &tok, nil
}

// Refresh exchanges a refresh token for a new token pair. The backend
// rotates refresh tokens: the old one is spent whether or not the caller
// keeps the response.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	query := url.Values{}
	query.Set("refresh_token", refreshToken)

	req, err := c.newRequest(ctx, http.MethodPost, RefreshPath, query, nil, "")
	if err != nil {
		return nil, err
	}

	var tok oauth2.Token
	if err := c.send(req, &tok); err != nil {
		if apperrors.Is(err, apperrors.ErrNotAuthenticated) {
			return nil, apperrors.ErrRefreshRejected
		}
		return nil, errors.Wrap(err, "[Client.Refresh]")
	}
	return &tok, nil
}

// FetchProfile fetches the profile of the user owning accessToken. The token
// is passed explicitly so the session machine can fetch a profile before the
// authorizer transport sees the new credentials.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/me", nil, nil, "")
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var user User
	if err := c.send(req, &user); err != nil {
		return nil, errors.Wrap(err, "[Client.FetchProfile]")
	}
	return &user, nil
}

// Me fetches the current user's profile using the transport's credentials.
func (c *Client) Me(ctx context.Context) (*User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/me", nil, nil, "")
	if err != nil {
		return nil, err
	}
	var user User
	if err := c.send(req, &user); err != nil {
		return nil, errors.Wrap(err, "[Client.Me]")
	}
	return &user, nil
}

// RegisterPublic self-registers a new account. The new user always gets the
// default "user" role.
func (c *Client) RegisterPublic(ctx context.Context, reg PublicRegistration) (*User, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, PublicRegisterPath, nil, reg)
	if err != nil {
		return nil, err
	}
	var user User
	if err := c.send(req, &user); err != nil {
		return nil, errors.Wrap(err, "[Client.RegisterPublic]")
	}
	return &user, nil
}

// Register creates an account with explicit roles. Admin only; self-service
// signups go through RegisterPublic.
func (c *Client) Register(ctx context.Context, reg AdminRegistration) (*User, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/auth/register", nil, reg)
	if err != nil {
		return nil, err
	}
	var user User
	if err := c.send(req, &user); err != nil {
		return nil, errors.Wrap(err, "[Client.Register]")
	}
	return &user, nil
}

// ListUsers lists users, optionally filtered by a username substring.
// Admin only.
func (c *Client) ListUsers(ctx context.Context, username string, skip, limit int) (*UserList, error) {
	query := url.Values{}
	if username != "" {
		query.Set("username", username)
	}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))

	req, err := c.newRequest(ctx, http.MethodGet, "/auth/users", query, nil, "")
	if err != nil {
		return nil, err
	}
	var list UserList
	if err := c.send(req, &list); err != nil {
		return nil, errors.Wrap(err, "[Client.ListUsers]")
	}
	return &list, nil
}

// UpdateUser applies a partial update to a user record. Admin only (users
// may update their own record).
func (c *Client) UpdateUser(ctx context.Context, userID int, update UserUpdate) (*User, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPut, fmt.Sprintf("/auth/users/%d", userID), nil, update)
	if err != nil {
		return nil, err
	}
	var user User
	if err := c.send(req, &user); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateUser]")
	}
	return &user, nil
}

// DeleteUser removes a user account. Admin only.
func (c *Client) DeleteUser(ctx context.Context, userID int) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/auth/users/%d", userID), nil, nil, "")
	if err != nil {
		return err
	}
	if err := c.send(req, nil); err != nil {
		return errors.Wrap(err, "[Client.DeleteUser]")
	}
	return nil
}

// UploadProfilePicture uploads a new profile picture for the current user.
func (c *Client) UploadProfilePicture(ctx context.Context, filename string, content []byte) (*ProfilePicture, error) {
	body, contentType, err := multipartFile("file", filename, content)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.UploadProfilePicture]")
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/profile-picture", nil, body, contentType)
	if err != nil {
		return nil, err
	}
	var pic ProfilePicture
	if err := c.send(req, &pic); err != nil {
		return nil, errors.Wrap(err, "[Client.UploadProfilePicture]")
	}
	return &pic, nil
}
