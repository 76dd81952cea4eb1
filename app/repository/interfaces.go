package repository

import (
	"time"

	"github.com/searchlens/searchlens/app/models"
	"gorm.io/gorm"
)

// CredentialRepository defines the persistence boundary for provider
// credentials. It carries no lifecycle policy; refresh and revoke decisions
// live in the credentials manager.
type CredentialRepository interface {
	GetByUserAndProvider(userID uint, provider string) (*models.Credential, error)
	// UpdateToken writes access token, expiry and updated_at only, so it can
	// never clobber the refresh secret columns.
	UpdateToken(userID uint, provider, accessToken string, expiresAt time.Time) error
	// Upsert overwrites a row with a brand-new grant. Used by the upstream
	// consent callback, not by steady-state refresh.
	Upsert(cred *models.Credential) error
	Delete(userID uint, provider string) error
	Exists(userID uint, provider string) (bool, error)
	ListByUser(userID uint) ([]models.Credential, error)
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Credential CredentialRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Credential: NewCredentialRepository(db),
	}
}
