package main

import (
	"context"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/config"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/database"
	logger "github.com/LevyDecisionNeuroLab/risk-survey/internal/logging"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/models"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/repository"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/router"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/services"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/trials"
)

func main() {
	// Local development reads database credentials from a .env file; in
	// deployment the variables come from the environment directly.
	godotenv.Load()

	// Initialize a logger with default settings so configuration loading has
	// somewhere to report to, then reopen it with the configured rotation.
	log, err := logger.Init(".", logger.Options{})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	if err := config.Init(".", log); err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	logConf := config.Conf.Logging
	log, err = logger.Init(".", logger.Options{
		Directory:  logConf.Directory,
		MaxSize:    logConf.MaxSize,
		MaxBackups: logConf.MaxBackups,
		MaxAge:     logConf.MaxAge,
		Compress:   logConf.Compress,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize Database
	database.Init(log)

	if err := repository.EnsureExportSettings(context.Background(), log); err != nil {
		log.Fatal("Failed to seed export settings", zap.Error(err))
	}

	// Validate the study materials at startup so a bad deploy fails here
	// rather than mid-session.
	study := config.Conf.Study
	if _, err := trials.LoadTable(study.TrialTable); err != nil {
		log.Fatal("Failed to load trial table", zap.Error(err))
	}
	if _, err := models.LoadAttentionChecks(study.AttentionCheckFile); err != nil {
		log.Fatal("Failed to load attention checks", zap.Error(err))
	}

	// Setup router, passing the logger to it
	r := router.Setup(log)

	services.NewPayoutMonitor(log).Start()

	port := ":" + config.Conf.Server.Port
	log.Info("Server listening on http://localhost" + port)
	if err := r.Run(port); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
}
