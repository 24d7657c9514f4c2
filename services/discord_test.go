package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"surf-leaderboard/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDiscordFixture(t *testing.T, mux *http.ServeMux) (*DiscordService, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	discord := NewDiscordService(db,
		"cid", "csecret",
		srv.URL+"/oauth/authorize", srv.URL+"/oauth/token",
		"http://localhost/callback", srv.URL, "app123")
	return discord, db
}

func createTestLink(t *testing.T, db *gorm.DB, expiresAt time.Time) *models.DiscordLink {
	t.Helper()
	user := createTestUser(t, db, "alice", models.DefaultPermissions)
	link := models.DiscordLink{
		UserID:       user.ID,
		Snowflake:    "100",
		Name:         "alice#0",
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    expiresAt,
	}
	require.NoError(t, db.Create(&link).Error)
	return &link
}

func tokenResponse(w http.ResponseWriter, refreshToken string) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]interface{}{
		"access_token": "new-access",
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	if refreshToken != "" {
		payload["refresh_token"] = refreshToken
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func TestUpdateRoleConnection(t *testing.T) {
	type putCall struct {
		Auth string
		Body struct {
			PlatformName string            `json:"platform_name"`
			Metadata     map[string]string `json:"metadata"`
		}
	}
	var puts []putCall

	mux := http.NewServeMux()
	mux.HandleFunc("/users/@me/applications/app123/role-connection", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "PUT", r.Method)
		var call putCall
		call.Auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&call.Body))
		puts = append(puts, call)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{}"))
	})

	discord, db := newDiscordFixture(t, mux)
	link := createTestLink(t, db, time.Now().Add(time.Hour))

	require.NoError(t, discord.UpdateRoleConnection(context.Background(), link, models.TitleSurfer))

	require.Len(t, puts, 1)
	assert.Equal(t, "Bearer old-access", puts[0].Auth)
	assert.Equal(t, "1", puts[0].Body.Metadata["title"])
	assert.NotEmpty(t, puts[0].Body.PlatformName)
}

func TestUpdateRoleConnectionSurfacesAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/@me/applications/app123/role-connection", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid token"}`, http.StatusUnauthorized)
	})

	discord, db := newDiscordFixture(t, mux)
	link := createTestLink(t, db, time.Now().Add(time.Hour))

	err := discord.UpdateRoleConnection(context.Background(), link, models.TitleSurfer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestEnsureFreshTokenRefreshesExpiredLink(t *testing.T) {
	var grants int
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		grants++
		tokenResponse(w, "new-refresh")
	})

	discord, db := newDiscordFixture(t, mux)
	link := createTestLink(t, db, time.Now().Add(-time.Hour))

	require.NoError(t, discord.EnsureFreshToken(context.Background(), link))
	assert.Equal(t, 1, grants)

	// The rotated pair is applied in memory and persisted.
	assert.Equal(t, "new-access", link.AccessToken)
	assert.Equal(t, "new-refresh", link.RefreshToken)
	assert.True(t, link.ExpiresAt.After(time.Now()))

	var stored models.DiscordLink
	require.NoError(t, db.First(&stored, link.ID).Error)
	assert.Equal(t, "new-access", stored.AccessToken)
	assert.Equal(t, "new-refresh", stored.RefreshToken)
	assert.True(t, stored.ExpiresAt.After(time.Now()))
}

func TestEnsureFreshTokenKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenResponse(w, "")
	})

	discord, db := newDiscordFixture(t, mux)
	link := createTestLink(t, db, time.Now().Add(-time.Hour))

	require.NoError(t, discord.EnsureFreshToken(context.Background(), link))
	assert.Equal(t, "new-access", link.AccessToken)
	assert.Equal(t, "old-refresh", link.RefreshToken, "a grant without rotation keeps the stored refresh token")

	var stored models.DiscordLink
	require.NoError(t, db.First(&stored, link.ID).Error)
	assert.Equal(t, "old-refresh", stored.RefreshToken)
}

func TestEnsureFreshTokenSkipsFreshLink(t *testing.T) {
	var grants int
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		grants++
		tokenResponse(w, "new-refresh")
	})

	discord, db := newDiscordFixture(t, mux)
	link := createTestLink(t, db, time.Now().Add(time.Hour))

	require.NoError(t, discord.EnsureFreshToken(context.Background(), link))
	assert.Zero(t, grants)
	assert.Equal(t, "old-access", link.AccessToken)
}
