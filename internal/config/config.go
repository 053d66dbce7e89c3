package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Port                          string `mapstructure:"PORT"`
	DatabasePath                  string `mapstructure:"DATABASE_PATH"`
	BaseURL                       string `mapstructure:"BASE_URL"`
	JWTSecret                     string `mapstructure:"JWT_SECRET"`
	AssertionSalt                 string `mapstructure:"ASSERTION_SALT"`
	EvidenceDir                   string `mapstructure:"EVIDENCE_DIR"`
	ClaimCodeLimit                int    `mapstructure:"CLAIM_CODE_LIMIT"`
	DiscordClientID               string `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret           string `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL            string `mapstructure:"DISCORD_REDIRECT_URL"`
	DiscordGuildID                string `mapstructure:"DISCORD_GUILD_ID"`
	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
}

func LoadConfig() *Config {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_PATH", "badgehub.db")
	viper.SetDefault("BASE_URL", "http://127.0.0.1:8080")
	viper.SetDefault("ASSERTION_SALT", "badgehub")
	viper.SetDefault("EVIDENCE_DIR", "evidence")
	// Cap on codes accepted per bulk upload.
	viper.SetDefault("CLAIM_CODE_LIMIT", 1000)
	viper.SetDefault("DISCORD_REDIRECT_URL", "http://127.0.0.1:8080/auth/discord/callback")

	viper.BindEnv("BASE_URL")
	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("ASSERTION_SALT")
	viper.BindEnv("EVIDENCE_DIR")
	viper.BindEnv("CLAIM_CODE_LIMIT")
	viper.BindEnv("DISCORD_CLIENT_ID")
	viper.BindEnv("DISCORD_CLIENT_SECRET")
	viper.BindEnv("DISCORD_GUILD_ID")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	return &config
}
