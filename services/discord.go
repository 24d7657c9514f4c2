// services/discord.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"surf-leaderboard/models"
	"surf-leaderboard/utils"

	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// DiscordService links chat identities via OAuth and pushes role-connection
// metadata when titles change.
type DiscordService struct {
	DB      *gorm.DB
	OAuth   *oauth2.Config
	AppID   string
	APIBase string
	Client  *http.Client
}

func NewDiscordService(db *gorm.DB, clientID, clientSecret, authURL, tokenURL, redirectURL, apiBase, appID string) *DiscordService {
	return &DiscordService{
		DB: db,
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"identify", "role_connections.write"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		AppID:   appID,
		APIBase: apiBase,
		Client:  utils.OAuthHTTPClient,
	}
}

func (s *DiscordService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.Client)
}

// AuthCodeURL builds the consent redirect for a CSRF state token.
func (s *DiscordService) AuthCodeURL(state string) string {
	return s.OAuth.AuthCodeURL(state)
}

type discordIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (s *DiscordService) fetchIdentity(ctx context.Context, accessToken string) (*discordIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.APIBase+"/users/@me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity endpoint returned %d", resp.StatusCode)
	}
	var ident discordIdentity
	if err := json.NewDecoder(resp.Body).Decode(&ident); err != nil {
		return nil, fmt.Errorf("failed to decode identity: %w", err)
	}
	return &ident, nil
}

// CompleteLink exchanges the authorization code and persists the identity.
// A user may hold at most five links.
func (s *DiscordService) CompleteLink(ctx context.Context, user *models.User, code string) (*models.DiscordLink, error) {
	token, err := s.OAuth.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, utils.ServerError("token exchange failed")
	}

	ident, err := s.fetchIdentity(ctx, token.AccessToken)
	if err != nil {
		return nil, utils.ServerError("identity lookup failed")
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.DiscordLink{}).
		Where("user_id = ? AND snowflake <> ?", user.ID, ident.ID).
		Count(&count).Error; err != nil {
		return nil, utils.ServerError("failed to count links")
	}
	if count >= models.MaxDiscordLinks {
		return nil, utils.NewError(utils.KindAlreadyExists)
	}

	link := models.DiscordLink{
		UserID:       user.ID,
		Snowflake:    ident.ID,
		Name:         ident.Username,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}

	// Re-linking the same identity replaces the stored tokens.
	err = s.DB.WithContext(ctx).
		Where("user_id = ? AND snowflake = ?", user.ID, ident.ID).
		Assign(map[string]interface{}{
			"name":          link.Name,
			"access_token":  link.AccessToken,
			"refresh_token": link.RefreshToken,
			"expires_at":    link.ExpiresAt,
		}).
		FirstOrCreate(&link).Error
	if err != nil {
		return nil, utils.ServerError("failed to persist link")
	}
	return &link, nil
}

// Links returns the user's chat identities.
func (s *DiscordService) Links(ctx context.Context, userID int64) ([]models.DiscordLink, error) {
	var links []models.DiscordLink
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&links).Error; err != nil {
		return nil, utils.ServerError("failed to load links")
	}
	return links, nil
}

// DeleteLink removes one identity by snowflake.
func (s *DiscordService) DeleteLink(ctx context.Context, userID int64, snowflake string) error {
	res := s.DB.WithContext(ctx).
		Where("user_id = ? AND snowflake = ?", userID, snowflake).
		Delete(&models.DiscordLink{})
	if res.Error != nil {
		return utils.ServerError("failed to delete link")
	}
	if res.RowsAffected == 0 {
		return utils.NewError(utils.KindNotFound)
	}
	return nil
}

// EnsureFreshToken refreshes the access token when it expired and persists
// the rotated token pair. Refreshes are not retried here.
func (s *DiscordService) EnsureFreshToken(ctx context.Context, link *models.DiscordLink) error {
	if time.Now().Before(link.ExpiresAt.Add(-time.Minute)) {
		return nil
	}

	src := s.OAuth.TokenSource(s.oauthContext(ctx), &oauth2.Token{
		RefreshToken: link.RefreshToken,
	})
	token, err := src.Token()
	if err != nil {
		return fmt.Errorf("refresh grant failed: %w", err)
	}

	link.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		link.RefreshToken = token.RefreshToken
	}
	link.ExpiresAt = token.Expiry

	err = s.DB.WithContext(ctx).Model(&models.DiscordLink{}).
		Where("id = ?", link.ID).
		Updates(map[string]interface{}{
			"access_token":  link.AccessToken,
			"refresh_token": link.RefreshToken,
			"expires_at":    link.ExpiresAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	return nil
}

// UpdateRoleConnection pushes the user's title ordinal as role-connection
// metadata for the linked identity.
func (s *DiscordService) UpdateRoleConnection(ctx context.Context, link *models.DiscordLink, title models.Title) error {
	body, err := json.Marshal(map[string]interface{}{
		"platform_name": "Surf Leaderboards",
		"metadata": map[string]string{
			"title": strconv.Itoa(int(title)),
		},
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/users/@me/applications/%s/role-connection", s.APIBase, s.AppID)
	req, err := http.NewRequestWithContext(ctx, "PUT", endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+link.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("role connection request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("role connection returned %d: %s", resp.StatusCode, string(payload))
	}
	return nil
}
