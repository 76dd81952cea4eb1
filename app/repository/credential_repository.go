package repository

import (
	"errors"
	"time"

	"github.com/searchlens/searchlens/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// credentialRepository implements the CredentialRepository interface
type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new credential repository instance
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

// GetByUserAndProvider loads the single credential for a (user, provider) pair
func (r *credentialRepository) GetByUserAndProvider(userID uint, provider string) (*models.Credential, error) {
	var cred models.Credential
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&cred).Error
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// UpdateToken performs a targeted update of the token columns. The refresh
// secret columns are deliberately left out of the update set.
func (r *credentialRepository) UpdateToken(userID uint, provider, accessToken string, expiresAt time.Time) error {
	result := r.db.Model(&models.Credential{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Updates(map[string]interface{}{
			"access_token": accessToken,
			"expires_at":   expiresAt,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Upsert creates the credential or replaces all grant material on conflict
func (r *credentialRepository) Upsert(cred *models.Credential) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "provider"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token",
			"refresh_token_enc",
			"refresh_token",
			"expires_at",
			"updated_at",
		}),
	}).Create(cred).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("user_id = ? AND provider = ?", cred.UserID, cred.Provider).
		First(cred).Error
}

// Delete removes the credential row. Deleting an absent row is not an error,
// which keeps revoke idempotent.
func (r *credentialRepository) Delete(userID uint, provider string) error {
	return r.db.Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&models.Credential{}).Error
}

// Exists reports whether a credential row is present
func (r *credentialRepository) Exists(userID uint, provider string) (bool, error) {
	var cred models.Credential
	err := r.db.Select("id").
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListByUser returns all provider connections of a user
func (r *credentialRepository) ListByUser(userID uint) ([]models.Credential, error) {
	var creds []models.Credential
	err := r.db.Where("user_id = ?", userID).Order("provider ASC").Find(&creds).Error
	return creds, err
}

// Count returns the total number of stored credentials
func (r *credentialRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Credential{}).Count(&count).Error
	return count, err
}
