// Package auth owns account credentials: signup, password login, refresh
// token rotation, logout, admin promotion and external sign-in.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/domain"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const (
	CodeWeakPassword     = "WEAK_PASSWORD"
	CodeEmailExists      = "EMAIL_EXISTS"
	CodeAdminDisabled    = "ADMIN_DISABLED"
	CodeAdminCodeInvalid = "ADMIN_CODE_INVALID"
	CodeMissingFields    = "MISSING_FIELDS"
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeAlreadyAdmin     = "ALREADY_ADMIN"
	CodePromoted         = "PROMOTED"
)

const minPasswordLen = 8

type Service struct {
	Repo            *repo.GormRepo
	Tokens          *tokens.Issuer
	Events          events.Publisher
	Metrics         *metrics.Metrics
	AdminSignupCode string
}

// Profile is the public view of an account.
type Profile struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

func ProfileOf(acc *models.Account) Profile {
	roles := []string(acc.Roles)
	if roles == nil {
		roles = []string{}
	}
	return Profile{ID: acc.ID.String(), Email: acc.EmailValue(), Name: acc.Name, Roles: roles}
}

// Session is the outcome of a successful authentication.
type Session struct {
	Account      Profile
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type SignupInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	AdminCode string `json:"adminCode"`
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// StrongPassword requires at least eight characters with a letter and a digit.
func StrongPassword(pw string) bool {
	if len(pw) < minPasswordLen {
		return false
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return letter && digit
}

func (s *Service) checkAdminCode(code string) error {
	if s.AdminSignupCode == "" {
		return apperr.WithCode(apperr.ErrUnavailable, "Admin signup disabled (missing ADMIN_SIGNUP_CODE server config)", CodeAdminDisabled)
	}
	if subtle.ConstantTimeCompare([]byte(code), []byte(s.AdminSignupCode)) != 1 {
		return apperr.WithCode(apperr.ErrForbidden, "Invalid admin code", CodeAdminCodeInvalid)
	}
	return nil
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")

	email := domain.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || in.Password == "" {
		return nil, apperr.Validation("email and password required")
	}
	if !StrongPassword(in.Password) {
		return nil, apperr.WithCode(apperr.ErrValidation,
			"Password too weak (min 8 chars, include letter & number)", CodeWeakPassword)
	}

	roles := pq.StringArray{models.RoleUser}
	if strings.EqualFold(strings.TrimSpace(in.Role), models.RoleAdmin) {
		if err := s.checkAdminCode(in.AdminCode); err != nil {
			l.Warn("signup_error", "status", apperr.Status(err), "error", err)
			s.count("signup", "rejected")
			return nil, err
		}
		roles = pq.StringArray{models.RoleAdmin}
	}

	pwHash, err := HashPassword(in.Password)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}
	acc := &models.Account{Email: &email, Name: name, PasswordHash: &pwHash, Roles: roles}
	if err := s.Repo.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			s.count("signup", "conflict")
			return nil, apperr.WithCode(apperr.ErrConflict, "Email already in use", CodeEmailExists)
		}
		l.Error("signup_error", "status", 500, "error", err)
		return nil, err
	}

	sess, err := s.issue(ctx, acc)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot issue tokens", "error", err)
		return nil, err
	}
	s.count("signup", "ok")
	s.publish(ctx, "user.registered", acc)
	l.Info("signup_ok", "account_id", acc.ID.String())
	return sess, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password required")
	}

	acc, err := s.Repo.FindAccountByEmail(ctx, email)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		l.Error("login_error", "status", 500, "error", err)
		return nil, err
	}
	if acc == nil || acc.PasswordHash == nil || !CheckPassword(*acc.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		s.count("login", "rejected")
		return nil, apperr.Unauthenticated("Invalid credentials")
	}

	if err := s.Repo.TouchLastLogin(ctx, acc.ID); err != nil {
		l.Warn("touch_last_login_error", "error", err)
	}

	sess, err := s.issue(ctx, acc)
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot issue tokens", "error", err)
		return nil, err
	}
	s.count("login", "ok")
	return sess, nil
}

// Refresh rotates a refresh token. The presented token is revoked and a new
// pair issued; a token that was already rotated or revoked is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshToken == "" {
		return nil, apperr.Validation("refreshToken required")
	}
	invalid := apperr.Unauthenticated("Invalid refresh token")

	claims, err := s.Tokens.ParseRefresh(refreshToken)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "error", err)
		s.count("refresh", "rejected")
		return nil, invalid
	}
	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		s.count("refresh", "rejected")
		return nil, invalid
	}

	acc, err := s.Repo.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.count("refresh", "rejected")
			return nil, invalid
		}
		return nil, err
	}

	access, accessExp, err := s.Tokens.CreateAccessToken(acc.ID.String(), acc.Roles)
	if err != nil {
		return nil, err
	}
	next, err := s.Tokens.CreateRefreshToken(acc.ID.String())
	if err != nil {
		return nil, err
	}

	rec := &models.RefreshToken{AccountID: acc.ID, JTI: next.JTI, TokenHash: next.Hash, ExpiresAt: next.ExpiresAt}
	if err := s.Repo.RotateRefreshToken(ctx, acc.ID, s.Tokens.Hash(refreshToken), rec); err != nil {
		if errors.Is(err, repo.ErrRefreshNotActive) {
			l.Warn("refresh_failed", "status", 401, "reason", "token not active", "account_id", acc.ID.String())
			s.count("refresh", "rejected")
			return nil, invalid
		}
		l.Error("refresh_error", "status", 500, "error", err)
		return nil, err
	}

	s.count("refresh", "ok")
	return &Session{
		Account:      ProfileOf(acc),
		AccessToken:  access,
		RefreshToken: next.Token,
		AccessExp:    accessExp,
		RefreshExp:   next.ExpiresAt,
	}, nil
}

// Logout revokes the refresh token when one is presented. It never fails
// for a missing or unknown token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.Repo.RevokeRefreshToken(ctx, s.Tokens.Hash(refreshToken)); err != nil {
		logging.FromContext(ctx).With("svc", "auth.logout").Error("logout_error", "error", err)
		return err
	}
	s.count("logout", "ok")
	return nil
}

// PromoteResult is returned for both a fresh promotion and an account that
// already was an admin.
type PromoteResult struct {
	Code    string
	Message string
	Account Profile
}

func (s *Service) PromoteAdmin(ctx context.Context, email, adminCode string) (*PromoteResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.promote_admin")

	email = domain.NormalizeEmail(email)
	if email == "" || adminCode == "" {
		return nil, apperr.WithCode(apperr.ErrValidation, "email and adminCode required", CodeMissingFields)
	}
	if err := s.checkAdminCode(adminCode); err != nil {
		l.Warn("promote_error", "status", apperr.Status(err), "error", err)
		return nil, err
	}

	acc, err := s.Repo.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.WithCode(apperr.ErrNotFound, "User not found", CodeUserNotFound)
		}
		return nil, err
	}
	if acc.IsAdmin() {
		return &PromoteResult{Code: CodeAlreadyAdmin, Message: "Already admin", Account: ProfileOf(acc)}, nil
	}

	roles := []string{models.RoleAdmin}
	if err := s.Repo.SetRoles(ctx, acc.ID, roles); err != nil {
		l.Error("promote_error", "status", 500, "error", err)
		return nil, err
	}
	acc.Roles = roles
	l.Info("account_promoted", "account_id", acc.ID.String())
	s.publish(ctx, "user.promoted", acc)
	return &PromoteResult{Code: CodePromoted, Message: "Promoted to admin", Account: ProfileOf(acc)}, nil
}

func (s *Service) Profile(ctx context.Context, accountID uuid.UUID) (*Profile, error) {
	acc, err := s.Repo.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	p := ProfileOf(acc)
	return &p, nil
}

// SignInExternal maps a profile asserted by an outside provider (Google) to
// an account and issues a token pair for it.
func (s *Service) SignInExternal(ctx context.Context, provider string, p domain.ExternalProfile) (*Session, error) {
	l := logging.FromContext(ctx).With("svc", "auth.external", "provider", provider)

	if p.Subject == "" || domain.NormalizeEmail(p.Email) == "" {
		return nil, apperr.Unauthenticated("OAuth profile is missing an email")
	}
	p.Roles = nil

	acc, created, err := s.Repo.LinkExternal(ctx, provider, p)
	if err != nil {
		l.Error("external_signin_error", "status", 500, "error", err)
		return nil, err
	}
	if created {
		s.publish(ctx, "user.registered", acc)
	}
	if err := s.Repo.TouchLastLogin(ctx, acc.ID); err != nil {
		l.Warn("touch_last_login_error", "error", err)
	}

	sess, err := s.issue(ctx, acc)
	if err != nil {
		return nil, err
	}
	s.count("oauth", "ok")
	return sess, nil
}

// SeedAdmin creates the configured admin account when it does not exist.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) error {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	l := logging.FromContext(ctx).With("svc", "auth.seed_admin")

	if _, err := s.Repo.FindAccountByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	pwHash, err := HashPassword(password)
	if err != nil {
		return err
	}
	acc := &models.Account{Email: &email, Name: "Admin", PasswordHash: &pwHash, Roles: pq.StringArray{models.RoleAdmin}}
	if err := s.Repo.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil
		}
		return err
	}
	l.Info("admin_seeded", "email", email)
	return nil
}

func (s *Service) issue(ctx context.Context, acc *models.Account) (*Session, error) {
	access, accessExp, err := s.Tokens.CreateAccessToken(acc.ID.String(), acc.Roles)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Tokens.CreateRefreshToken(acc.ID.String())
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SaveRefreshToken(ctx, &models.RefreshToken{
		AccountID: acc.ID,
		JTI:       refresh.JTI,
		TokenHash: refresh.Hash,
		ExpiresAt: refresh.ExpiresAt,
	}); err != nil {
		return nil, err
	}
	return &Session{
		Account:      ProfileOf(acc),
		AccessToken:  access,
		RefreshToken: refresh.Token,
		AccessExp:    accessExp,
		RefreshExp:   refresh.ExpiresAt,
	}, nil
}

func (s *Service) count(event, outcome string) {
	if s.Metrics != nil {
		s.Metrics.AuthEvents.WithLabelValues(event, outcome).Inc()
	}
}

func (s *Service) publish(ctx context.Context, eventType string, acc *models.Account) {
	if s.Events == nil {
		return
	}
	ev := events.New(eventType, map[string]any{
		"accountId": acc.ID.String(),
		"email":     acc.EmailValue(),
		"roles":     []string(acc.Roles),
	})
	if err := s.Events.Publish(ctx, events.TopicUser, acc.ID.String(), ev); err != nil {
		logging.FromContext(ctx).Warn("publish_user_event_error", "type", eventType, "error", err)
	}
}
