package repository

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/database"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/utils"
)

// DefaultExportSlugs are the download gates every deployment carries.
var DefaultExportSlugs = []string{"trials", "attention", "bonus"}

// GetExportSetting looks up the download gate for a URL slug.
func GetExportSetting(ctx context.Context, slug string) (*models.ExportSetting, error) {
	var setting models.ExportSetting
	result := database.DB.WithContext(ctx).First(&setting, "url_slug = ?", slug)
	return &setting, result.Error
}

// CheckExportPassword verifies a password attempt against the stored hash for
// a slug.
func CheckExportPassword(ctx context.Context, slug, password string) (bool, error) {
	setting, err := GetExportSetting(ctx, slug)
	if err != nil {
		return false, err
	}
	err = bcrypt.CompareHashAndPassword([]byte(setting.PasswordHash), []byte(password))
	return err == nil, nil
}

// EnsureExportSettings seeds a download gate for every default slug that has
// none yet. Each seeded gate gets a generated password, logged once at
// startup so the researcher can retrieve and rotate it; only the bcrypt hash
// is stored.
func EnsureExportSettings(ctx context.Context, log *zap.Logger) error {
	for _, slug := range DefaultExportSlugs {
		_, err := GetExportSetting(ctx, slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		password, err := utils.GenerateSecureToken(18)
		if err != nil {
			return err
		}
		if err := SetExportPassword(ctx, slug, password); err != nil {
			return err
		}
		log.Warn("Seeded export gate with a generated password, rotate it",
			zap.String("slug", slug),
			zap.String("password", password))
	}
	return nil
}

// SetExportPassword creates or replaces the download gate for a slug.
func SetExportPassword(ctx context.Context, slug, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	var existing models.ExportSetting
	tx := database.DB.WithContext(ctx)
	if err := tx.First(&existing, "url_slug = ?", slug).Error; err == nil {
		existing.PasswordHash = string(hash)
		return tx.Save(&existing).Error
	}
	return tx.Create(&models.ExportSetting{URLSlug: slug, PasswordHash: string(hash)}).Error
}
