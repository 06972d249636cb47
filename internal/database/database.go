package database

import (
	"fmt"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/config"
	logging "github.com/LevyDecisionNeuroLab/risk-survey/internal/logging"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(log *zap.Logger) {
	var err error
	dbConf := config.Conf.Database
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.User, dbConf.Password, dbConf.DBName, dbConf.Port)

	gormLogger := logging.NewGormZapLogger(log)
	gormLogger.LogLevel = logger.Warn

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})

	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	log.Info("Database connection established successfully.")
	runMigrations(log)
}

func runMigrations(log *zap.Logger) {
	// GORM's AutoMigrate will create tables, columns, and foreign keys.
	// It will NOT create custom indexes, so we handle that separately.
	err := DB.AutoMigrate(
		&models.TrialResult{},
		&models.AttentionCheckResult{},
		&models.BonusPayment{},
		&models.SessionSnapshot{},
		&models.ExportSetting{},
	)
	if err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully.")

	// The exports stream every row ordered by receive time; the bonus patch
	// looks rows up by participant and trial number.
	resultsIndex := `CREATE INDEX IF NOT EXISTS idx_results_export ON trial_results (participant_id, trial_number, timestamp);`
	if err := DB.Exec(resultsIndex).Error; err != nil {
		log.Fatal("Failed to create custom index on trial results", zap.Error(err))
	}
	log.Info("Custom indexes ensured successfully.")
}
