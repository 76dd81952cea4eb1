package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Connection provider constants used across credential-related code.
const (
	ProviderGoogle = "google"
	ProviderBing   = "bing"
)

// Credential stores the OAuth2 material for one (user, provider) connection.
// RefreshTokenEnc holds the AES-GCM encrypted refresh secret (base64, nonce
// prefixed); RefreshTokenPlain is the legacy cleartext column kept for rows
// that predate encryption. Token fields are never serialized to JSON.
type Credential struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UUID              string    `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	UserID            uint      `gorm:"not null;index:ux_credentials_user_provider,unique,priority:1" json:"user_id"`
	Provider          string    `gorm:"type:varchar(50);not null;index:ux_credentials_user_provider,unique,priority:2" json:"provider"`
	AccessToken       string    `gorm:"type:text" json:"-"`
	RefreshTokenEnc   string    `gorm:"type:text" json:"-"`
	RefreshTokenPlain string    `gorm:"column:refresh_token;type:text" json:"-"`
	ExpiresAt         time.Time `gorm:"type:timestamp;not null" json:"expires_at"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns a UUID for new credentials
func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == "" {
		c.UUID = uuid.New().String()
	}
	return nil
}

// HasRefreshSecret reports whether the credential can ever be refreshed again.
// A row with neither an encrypted nor a legacy plaintext secret can still serve
// a valid access token but is unrecoverable once that token expires.
func (c *Credential) HasRefreshSecret() bool {
	return c.RefreshTokenEnc != "" || c.RefreshTokenPlain != ""
}
