package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/message-courier/internal/repository"
	"gorm.io/gorm"
)

func createMessagesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_messages",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.MessageModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_correlation_id ON messages (correlation_id)`,
				`CREATE INDEX IF NOT EXISTS idx_messages_pending ON messages (created_at) WHERE sent_at IS NULL`,
				`CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages (conversation_id) WHERE conversation_id IS NOT NULL`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.MessageModel{})
		},
	}
}
