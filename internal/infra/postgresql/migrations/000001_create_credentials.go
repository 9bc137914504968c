package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/message-courier/internal/repository"
	"gorm.io/gorm"
)

func createCredentialsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_credentials",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.CredentialModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_credentials_provider_key ON credentials (provider, key)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.CredentialModel{})
		},
	}
}
