package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Josevinuez/trade-in-api/config"
)

// UserInfo is the subset of the identity provider's /userinfo response we rely on
type UserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// IdentityResolver turns an access token into the caller's email when the token itself carries none
type IdentityResolver interface {
	GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error)
}

// IdentityService calls the identity provider's /userinfo endpoint
type IdentityService struct {
	userInfoURL string
	httpClient  *http.Client
}

// NewIdentityService creates a new identity service instance.
// The userinfo URL defaults to {issuer}/userinfo (Auth0) and can be overridden (Supabase: {project}/auth/v1/user).
func NewIdentityService(cfg *config.Config) *IdentityService {
	userInfoURL := cfg.AuthUserInfoURL
	if userInfoURL == "" {
		issuer := cfg.AuthIssuerURL
		if !strings.HasPrefix(issuer, "http://") && !strings.HasPrefix(issuer, "https://") {
			issuer = "https://" + issuer
		}
		userInfoURL = strings.TrimSuffix(issuer, "/") + "/userinfo"
	}

	return &IdentityService{
		userInfoURL: userInfoURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetUserInfo fetches user information for the bearer of accessToken
func (s *IdentityService) GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call userinfo endpoint: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("userinfo endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}

	return &userInfo, nil
}
