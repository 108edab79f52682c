package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/saegim/proofdesk/internal/repository"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_organizations",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.OrganizationModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.OrganizationModel{})
			},
		},
		{
			ID: "000002_create_orders",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.OrderModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_orders_org_status_created ON orders (organization_id, status, created_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.OrderModel{})
			},
		},
		{
			ID: "000003_create_qr_tokens_and_proofs",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.QRTokenModel{}); err != nil {
					return err
				}
				return tx.AutoMigrate(&repository.ProofModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				if err := tx.Migrator().DropTable(&repository.ProofModel{}); err != nil {
					return err
				}
				return tx.Migrator().DropTable(&repository.QRTokenModel{})
			},
		},
		{
			ID: "000004_create_notifications",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.NotificationModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_notifications_order_created ON notifications (order_id, created_at)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.NotificationModel{})
			},
		},
		{
			ID: "000005_create_short_links",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.ShortLinkModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ShortLinkModel{})
			},
		},
	})

	return m.Migrate()
}
