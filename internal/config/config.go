package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Conf holds the application configuration, making it accessible globally.
var Conf *Config

// Config struct is the top-level configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Study    StudyConfig    `mapstructure:"study"`
	Submit   SubmitConfig   `mapstructure:"submit"`
	Backup   BackupConfig   `mapstructure:"backup"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port          string   `mapstructure:"port"`
	SessionSecret string   `mapstructure:"session_secret"`
	CORSOrigins   []string `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// StudyConfig holds the experiment design parameters.
type StudyConfig struct {
	Mode               string `mapstructure:"mode"` // risk-survey or ip
	TrialTable         string `mapstructure:"trial_table"`
	AttentionCheckFile string `mapstructure:"attention_check_file"`
	MainTrials         int    `mapstructure:"main_trials"`
	AttentionChecks    int    `mapstructure:"attention_checks"`
	TrialDurationMS    int    `mapstructure:"trial_duration_ms"`
	PracticeTrialIDs   []int  `mapstructure:"practice_trial_ids"`
	FilterFiftyPercent bool   `mapstructure:"filter_fifty_percent"`
	BonusTrialMin      int    `mapstructure:"bonus_trial_min"`
	BonusTrialMax      int    `mapstructure:"bonus_trial_max"`
	Phase2RepsPerCombo int    `mapstructure:"phase2_reps_per_combination"`
	Phase2DummyTrials  int    `mapstructure:"phase2_dummy_trials"`
	IndifferenceCombos int    `mapstructure:"indifference_combinations"`
}

// SubmitConfig holds the submission pipeline retry policy.
type SubmitConfig struct {
	ServerURL       string `mapstructure:"server_url"`
	MaxRetries      int    `mapstructure:"max_retries"`
	AttemptTimeoutS int    `mapstructure:"attempt_timeout_s"`
	WakeSettleMS    int    `mapstructure:"wake_settle_ms"`
}

// BackupConfig holds settings for the local durable session backup.
type BackupConfig struct {
	Directory string `mapstructure:"directory"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.session_secret", "change-me")
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "risk-survey")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Study defaults match the deployed risk-survey design.
	v.SetDefault("study.mode", "risk-survey")
	v.SetDefault("study.trial_table", "config/full_trials.csv")
	v.SetDefault("study.attention_check_file", "config/attention_checks.yaml")
	v.SetDefault("study.main_trials", 120)
	v.SetDefault("study.attention_checks", 4)
	v.SetDefault("study.trial_duration_ms", 6000)
	v.SetDefault("study.practice_trial_ids", []int{1, 15, 30, 45, 60, 75, 90, 105})
	v.SetDefault("study.filter_fifty_percent", true)
	v.SetDefault("study.bonus_trial_min", 1)
	v.SetDefault("study.bonus_trial_max", 0) // 0 means "use main_trials"
	v.SetDefault("study.phase2_reps_per_combination", 4)
	v.SetDefault("study.phase2_dummy_trials", 12)
	v.SetDefault("study.indifference_combinations", 18)

	// Submission pipeline defaults
	v.SetDefault("submit.server_url", "http://localhost:3000")
	v.SetDefault("submit.max_retries", 3)
	v.SetDefault("submit.attempt_timeout_s", 30)
	v.SetDefault("submit.wake_settle_ms", 2000)

	// Backup defaults
	v.SetDefault("backup.directory", "backups")
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("RISKSURVEY") // e.g., RISKSURVEY_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the initial configuration from the file.
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the config into our global Conf variable
	if err := v.Unmarshal(&Conf); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Set up a watch for configuration changes for hot-reloading
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		if err := v.Unmarshal(&Conf); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
		}
	})

	log.Info("Configuration loaded successfully")
	return nil
}

// BonusRange resolves the configured bonus-eligibility bounds. A zero max
// falls back to the main-trial count so eligibility tracks the actual design
// instead of a hardcoded constant.
func (s StudyConfig) BonusRange() (min, max int) {
	min = s.BonusTrialMin
	if min < 1 {
		min = 1
	}
	max = s.BonusTrialMax
	if max <= 0 {
		max = s.MainTrials
	}
	return min, max
}
