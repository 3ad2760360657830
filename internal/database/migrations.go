package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNullEmptyMachineNumbers = "2025-05-20_null_empty_machine_numbers"
	migrationCanonicalCategoryNames  = "2025-06-02_canonical_category_names"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNullEmptyMachineNumbers, apply: nullEmptyMachineNumbers},
		{name: migrationCanonicalCategoryNames, apply: canonicalCategoryNames},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Absent and empty machine numbers mean the same thing; keep a single form.
func nullEmptyMachineNumbers(db *gorm.DB) error {
	return db.Exec("UPDATE draws SET machine_numbers = NULL WHERE machine_numbers IN ('[]', 'null', '');").Error
}

// Records keyed by display name ("Espèces") move to the provider name ("Cash").
// A display-name row whose provider-name twin already exists is dropped.
func canonicalCategoryNames(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, category := range draws.Categories() {
			if category.Name == category.APIName {
				continue
			}
			twins := tx.Model(&draws.Draw{}).Select("draw_date").Where("category = ?", category.APIName)
			if err := tx.Where("category = ? AND draw_date IN (?)", category.Name, twins).Delete(&draws.Draw{}).Error; err != nil {
				return err
			}
			if err := tx.Model(&draws.Draw{}).Where("category = ?", category.Name).Update("category", category.APIName).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
