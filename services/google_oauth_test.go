package services

import (
	"testing"
	"time"

	"github.com/davidrecordon/dawnward-sub002/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestMergeScopes(t *testing.T) {
	got := mergeScopes("openid email", []string{"email", calendarScope})
	assert.Equal(t, "openid email "+calendarScope, got)

	assert.Equal(t, "openid", mergeScopes("", []string{"openid"}))
	assert.Equal(t, "", mergeScopes("", nil))
}

func TestHasCalendarScope(t *testing.T) {
	assert.False(t, HasCalendarScope(&models.Account{Scopes: "openid email"}))
	assert.True(t, HasCalendarScope(&models.Account{Scopes: "openid " + calendarScope}))
	// scope string matching is exact, not prefix
	assert.False(t, HasCalendarScope(&models.Account{Scopes: calendarScope + ".readonly"}))
}

func TestTokenValid(t *testing.T) {
	assert.True(t, tokenValid(&models.Account{RefreshToken: "rt"}))
	assert.True(t, tokenValid(&models.Account{TokenExpiry: time.Now().Add(time.Hour)}))
	assert.False(t, tokenValid(&models.Account{TokenExpiry: time.Now().Add(-time.Hour)}))
}

func TestUpsertAccountKeepsRefreshToken(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "ada@example.com")
	g := NewGoogleOAuth()

	first := &oauth2.Token{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		Expiry:       time.Now().Add(time.Hour),
	}
	acct, err := g.UpsertAccount(db, user.ID, "sub-123", first, []string{"openid", "email"})
	require.NoError(t, err)
	assert.Equal(t, "rt-1", acct.RefreshToken)

	// Google omits the refresh token on repeat consents; keep the stored one
	second := &oauth2.Token{AccessToken: "at-2", Expiry: time.Now().Add(time.Hour)}
	acct, err = g.UpsertAccount(db, user.ID, "sub-123", second, []string{calendarScope})
	require.NoError(t, err)
	assert.Equal(t, "at-2", acct.AccessToken)
	assert.Equal(t, "rt-1", acct.RefreshToken)
	assert.True(t, HasCalendarScope(acct))
	assert.Contains(t, acct.Scopes, "openid")

	var count int64
	require.NoError(t, db.Model(&models.Account{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
