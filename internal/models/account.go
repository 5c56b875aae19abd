package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Account struct {
	ID           uuid.UUID      `gorm:"primaryKey"           json:"id"`
	Email        *string        `gorm:"uniqueIndex"          json:"email"`
	Name         string         `gorm:"not null;default:''"  json:"name"`
	PasswordHash *string        `json:"-"`
	Roles        pq.StringArray `gorm:"type:text;not null"   json:"roles"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if len(a.Roles) == 0 {
		a.Roles = pq.StringArray{RoleUser}
	}
	return nil
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) EmailValue() string {
	if a.Email == nil {
		return ""
	}
	return *a.Email
}

func (a *Account) IsAdmin() bool {
	return slices.Contains(a.Roles, RoleAdmin)
}

// IdentityLink ties a subject known to an outside identity provider to a
// local account.
type IdentityLink struct {
	ID        uuid.UUID `gorm:"primaryKey"                                  json:"id"`
	Provider  string    `gorm:"uniqueIndex:idx_provider_subject;not null"  json:"provider"`
	Subject   string    `gorm:"uniqueIndex:idx_provider_subject;not null"  json:"subject"`
	AccountID uuid.UUID `gorm:"index;not null"                              json:"account_id"`
	Email     string    `json:"email"`
	LinkedAt  time.Time `gorm:"autoCreateTime"                              json:"linked_at"`
}

func (l *IdentityLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (IdentityLink) TableName() string {
	return "identity_links"
}

type RefreshToken struct {
	ID         uuid.UUID  `gorm:"primaryKey"              json:"id"`
	AccountID  uuid.UUID  `gorm:"index;not null"          json:"account_id"`
	JTI        string     `gorm:"uniqueIndex;not null"    json:"jti"`
	TokenHash  string     `gorm:"uniqueIndex;not null"    json:"-"`
	ExpiresAt  time.Time  `gorm:"not null"                json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy *string    `json:"replaced_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
