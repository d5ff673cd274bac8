package migrations

import (
	"github.com/careops/visit-notify/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_parties",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.CaregiverModel{}, &repository.PatientModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_caregivers_external_code ON caregivers (external_code)`,
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_patients_admission_id ON patients (admission_id)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&repository.PatientModel{},
					&repository.CaregiverModel{},
				)
			},
		},
		{
			ID: "000002_create_visits",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.VisitModel{}); err != nil {
					return err
				}
				indexes := []string{
					// Partial unique index: external_id is the idempotency key
					// when present, but visits may be created without one.
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_visits_external_id ON visits (external_id) WHERE external_id IS NOT NULL`,
					`CREATE INDEX IF NOT EXISTS idx_visits_start_time ON visits (start_time)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.VisitModel{})
			},
		},
		{
			ID: "000003_create_reminder_jobs",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.ReminderJobModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_reminder_jobs_due ON reminder_jobs (send_at, id) WHERE status = 'PENDING'`,
					`CREATE INDEX IF NOT EXISTS idx_reminder_jobs_visit_id ON reminder_jobs (visit_id)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ReminderJobModel{})
			},
		},
		{
			ID: "000004_create_delivery_attempts",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DeliveryAttemptModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_delivery_attempts_job_id ON delivery_attempts (job_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.DeliveryAttemptModel{})
			},
		},
		{
			ID: "000005_create_import_batches",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&repository.ImportBatchModel{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.ImportBatchModel{})
			},
		},
	})

	return m.Migrate()
}
