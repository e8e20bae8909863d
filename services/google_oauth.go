package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/davidrecordon/dawnward-sub002/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

const calendarScope = "https://www.googleapis.com/auth/calendar.events"

var baseScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// GoogleOAuth wraps the authorization-code + refresh-token flow used for
// sign-in and for the incremental Calendar scope grant.
type GoogleOAuth struct {
	cfg *oauth2.Config
}

func NewGoogleOAuth() *GoogleOAuth {
	return &GoogleOAuth{cfg: &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		Scopes:       baseScopes,
		Endpoint:     google.Endpoint,
	}}
}

// AuthCodeURL builds the consent URL. withCalendar adds the Calendar
// events scope on top of whatever was granted before.
func (g *GoogleOAuth) AuthCodeURL(state string, withCalendar bool) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	}
	if withCalendar {
		opts = append(opts,
			oauth2.SetAuthURLParam("scope", strings.Join(append(baseScopes, calendarScope), " ")),
			oauth2.SetAuthURLParam("prompt", "consent"),
		)
	}
	return g.cfg.AuthCodeURL(state, opts...)
}

func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return g.cfg.Exchange(ctx, code)
}

type GoogleUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (g *GoogleOAuth) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*GoogleUserInfo, error) {
	resp, err := g.cfg.Client(ctx, token).Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}
	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, errors.New("userinfo response missing email")
	}
	return &info, nil
}

// UpsertAccount stores (or refreshes) the Google account row for a user.
// Google only returns the refresh token on the first consent, so an
// empty one never overwrites a stored value.
func (g *GoogleOAuth) UpsertAccount(db *gorm.DB, userID uint, sub string, token *oauth2.Token, scopes []string) (*models.Account, error) {
	var account models.Account
	err := db.Where("provider = ? AND provider_account_id = ?", "google", sub).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = models.Account{
			UserID:            userID,
			Provider:          "google",
			ProviderAccountID: sub,
		}
	} else if err != nil {
		return nil, err
	}

	account.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		account.RefreshToken = token.RefreshToken
	}
	account.TokenExpiry = token.Expiry
	account.Scopes = mergeScopes(account.Scopes, scopes)

	if err := db.Save(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func mergeScopes(existing string, granted []string) string {
	seen := map[string]bool{}
	var out []string
	for _, s := range append(strings.Fields(existing), granted...) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return strings.Join(out, " ")
}

// TokenSource yields auto-refreshing tokens from the stored account and
// writes refreshed access tokens back to the row.
func (g *GoogleOAuth) TokenSource(ctx context.Context, db *gorm.DB, account *models.Account) oauth2.TokenSource {
	stored := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		Expiry:       account.TokenExpiry,
	}
	return &persistingTokenSource{
		inner:   g.cfg.TokenSource(ctx, stored),
		db:      db,
		account: account,
	}
}

type persistingTokenSource struct {
	inner   oauth2.TokenSource
	db      *gorm.DB
	account *models.Account
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.inner.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != p.account.AccessToken {
		p.account.AccessToken = tok.AccessToken
		p.account.TokenExpiry = tok.Expiry
		_ = p.db.Model(p.account).Updates(map[string]interface{}{
			"access_token": tok.AccessToken,
			"token_expiry": tok.Expiry,
		}).Error
	}
	return tok, nil
}

// GoogleAccount fetches the user's linked Google account.
func GoogleAccount(db *gorm.DB, userID uint) (*models.Account, error) {
	var account models.Account
	err := db.Where("user_id = ? AND provider = ?", userID, "google").First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// HasCalendarScope reports whether the stored grant covers Calendar.
func HasCalendarScope(account *models.Account) bool {
	for _, s := range strings.Fields(account.Scopes) {
		if s == calendarScope {
			return true
		}
	}
	return false
}

// tokenValid is a loose sanity check used before attempting a sync.
func tokenValid(account *models.Account) bool {
	return account.RefreshToken != "" || account.TokenExpiry.After(time.Now())
}
