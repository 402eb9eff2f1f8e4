package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Database Database
	AMQP     AMQP
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

// AMQP configures the notification event publisher. URL may be left empty,
// in which case lifecycle events are only logged.
type AMQP struct {
	URL      string
	Exchange string
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.SetDefault("AMQP_EXCHANGE", "recruitment.events")

	viper.AutomaticEnv()

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

	config.AMQP.URL = viper.GetString("AMQP_URL")
	config.AMQP.Exchange = viper.GetString("AMQP_EXCHANGE")

	log.Info().Str("server_port", config.Server.Port).Str("database_host", config.Database.Host).Msg("Config loaded")
	return &config, nil
}
