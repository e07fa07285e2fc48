package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gyftr-sheet-sync/internal/config"
	"gyftr-sheet-sync/internal/model"
)

// RunRecord is one finished processing run in the audit log.
type RunRecord struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Mode          string    `json:"mode" gorm:"type:varchar(50);not null;index"`
	Source        string    `json:"source" gorm:"type:varchar(100);not null;index"`
	EmailsChecked int       `json:"emails_checked"`
	VouchersFound int       `json:"vouchers_found"`
	RowsAdded     int       `json:"rows_added"`
	ErrorCount    int       `json:"error_count"`
	Errors        string    `json:"errors" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for RunRecord
func (RunRecord) TableName() string {
	return "run_records"
}

// Store writes run summaries to the audit database. It is optional
// infrastructure: failures are logged and never affect a run's outcome.
type Store struct {
	db *gorm.DB
}

// Init connects to the audit database and runs migrations.
func Init(cfg config.DatabaseConfig) (*Store, error) {
	gormLogger := logger.New(
		logrus.StandardLogger(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(cfg.GetDSN()), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit database: %w", err)
	}

	logrus.Info("Audit database initialized")
	return &Store{db: db}, nil
}

// Record persists one run summary.
func (s *Store) Record(source string, result *model.RunResult) {
	record := RunRecord{
		Mode:          result.Mode,
		Source:        source,
		EmailsChecked: result.EmailsChecked,
		VouchersFound: result.VouchersFound,
		RowsAdded:     result.RowsAdded,
		ErrorCount:    len(result.Errors),
		Errors:        strings.Join(result.Errors, "\n"),
		CreatedAt:     time.Now(),
	}

	if err := s.db.Create(&record).Error; err != nil {
		logrus.Errorf("Failed to record run in audit log: %v", err)
	}
}
