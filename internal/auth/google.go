package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/Skotchmaster/storefront/internal/domain"
)

const (
	ProviderGoogle = "google"

	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

var googleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Google runs the authorization code flow against Google and reads the
// signed-in user's profile.
type Google struct {
	OAuth       *oauth2.Config
	UserInfoURL string
}

func NewGoogle(clientID, clientSecret, redirectURL string) *Google {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &Google{
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     googleEndpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: googleUserInfoURL,
	}
}

func NewState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SafeRedirect keeps only same-origin relative paths.
func SafeRedirect(p, fallback string) string {
	if strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, "\\") {
		return p
	}
	return fallback
}

func (g *Google) AuthCodeURL(state string) string {
	return g.OAuth.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.SetAuthURLParam("prompt", "select_account"))
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Exchange trades the code for a token and fetches the user profile.
func (g *Google) Exchange(ctx context.Context, code string) (domain.ExternalProfile, error) {
	tok, err := g.OAuth.Exchange(ctx, code)
	if err != nil {
		return domain.ExternalProfile{}, fmt.Errorf("google: exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return domain.ExternalProfile{}, err
	}
	resp, err := g.OAuth.Client(ctx, tok).Do(req)
	if err != nil {
		return domain.ExternalProfile{}, fmt.Errorf("google: userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ExternalProfile{}, fmt.Errorf("google: userinfo status %d", resp.StatusCode)
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.ExternalProfile{}, fmt.Errorf("google: decode userinfo: %w", err)
	}

	p := domain.ExternalProfile{Subject: info.Sub, Name: info.Name}
	// An unverified address is dropped; it must not link to an existing account.
	if info.EmailVerified {
		p.Email = domain.NormalizeEmail(info.Email)
	}
	return p, nil
}
