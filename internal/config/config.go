package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Completion-notification policies. The recipients of "task completed"
// notifications are a product decision, so they are configurable rather
// than hard-coded.
const (
	NotifyMembers  = "members"
	NotifyAssignee = "assignee"
	NotifyCreator  = "creator"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	ClientURL                        string `mapstructure:"CLIENT_URL"`
	InviteBaseURL                    string `mapstructure:"INVITE_BASE_URL"`
	TaskCompletedNotify              string `mapstructure:"TASK_COMPLETED_NOTIFY"`
	SMTPHost                         string `mapstructure:"SMTP_HOST"`
	SMTPPort                         string `mapstructure:"SMTP_PORT"`
	SMTPUsername                     string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword                     string `mapstructure:"SMTP_PASSWORD"`
	SMTPSender                       string `mapstructure:"SMTP_SENDER"`
}

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("TASK_COMPLETED_NOTIFY", NotifyMembers)

	for _, key := range []string{
		"PORT",
		"GIN_MODE",
		"FIREBASE_PROJECT_ID",
		"GOOGLE_APPLICATION_CREDENTIALS",
		"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
		"CLIENT_URL",
		"INVITE_BASE_URL",
		"TASK_COMPLETED_NOTIFY",
		"SMTP_HOST",
		"SMTP_PORT",
		"SMTP_USERNAME",
		"SMTP_PASSWORD",
		"SMTP_SENDER",
	} {
		viper.BindEnv(key)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.GoogleApplicationCredentials == "" && cfg.FirebaseServiceAccountJSONBase64 == "" {
		return nil, errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required")
	}
	switch cfg.TaskCompletedNotify {
	case NotifyMembers, NotifyAssignee, NotifyCreator:
	default:
		return nil, errors.New("TASK_COMPLETED_NOTIFY must be one of: members, assignee, creator")
	}
	if cfg.InviteBaseURL == "" {
		cfg.InviteBaseURL = cfg.ClientURL
	}

	return &cfg, nil
}

// MailEnabled reports whether outgoing invitation mail is configured.
// Mail is strictly best-effort; an unset SMTP block disables it.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUsername != "" && c.SMTPPassword != "" && c.SMTPSender != ""
}
