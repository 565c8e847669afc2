package api

import (
	"context"
	"fmt"

	"github.com/school-erp/superadmin/pkg/models"
)

const (
	loginPath   = "/api/auth/login"
	logoutPath  = "/api/auth/logout"
	profilePath = "/api/auth/profile"
)

// Login authenticates an operator. The access token may be nested under
// data or sit at the top level, depending on the backend version.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResult, error) {
	resp, err := c.Post(ctx, loginPath, models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var body struct {
		AccessToken string       `json:"access_token"`
		User        *models.User `json:"user"`
		Data        *struct {
			AccessToken string       `json:"access_token"`
			User        *models.User `json:"user"`
		} `json:"data"`
	}
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}

	result := &models.LoginResult{AccessToken: body.AccessToken, User: body.User}
	if body.Data != nil {
		if body.Data.AccessToken != "" {
			result.AccessToken = body.Data.AccessToken
		}
		if body.Data.User != nil {
			result.User = body.Data.User
		}
	}
	return result, nil
}

// Logout ends the backend session for the bound token.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Post(ctx, logoutPath, nil)
	return err
}

// Profile returns the signed-in operator.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var body struct {
		Data struct {
			User *models.User `json:"user"`
		} `json:"data"`
	}
	if err := c.GetJSON(ctx, profilePath, &body); err != nil {
		return nil, err
	}
	if body.Data.User == nil {
		return nil, fmt.Errorf("decode response: profile has no user")
	}
	return body.Data.User, nil
}
