package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server     Server
	Database   Database
	AI         AI
	Invitation Invitation
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// AI holds one API key per supported provider. The evaluation gateway picks
// the first provider whose key is configured, in fixed priority order.
type AI struct {
	GroqAPIKey   string
	GroqBaseURL  string
	OpenAIAPIKey string
	GeminiAPIKey string
}

type Invitation struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1")
	viper.SetDefault("INVITATION_TTL_HOURS", 168)
	viper.SetDefault("EXPIRY_SWEEP_MINUTES", 15)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.AI.GroqAPIKey = viper.GetString("GROQ_API_KEY")
	config.AI.GroqBaseURL = viper.GetString("GROQ_BASE_URL")
	config.AI.OpenAIAPIKey = viper.GetString("OPENAI_API_KEY")
	config.AI.GeminiAPIKey = viper.GetString("GEMINI_API_KEY")

	config.Invitation.TTL = time.Duration(viper.GetInt("INVITATION_TTL_HOURS")) * time.Hour
	config.Invitation.SweepInterval = time.Duration(viper.GetInt("EXPIRY_SWEEP_MINUTES")) * time.Minute

	log.Info().Str("port", config.Server.Port).Str("db_host", config.Database.Host).Msg("Config loaded")
	return &config, nil
}
