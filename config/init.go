package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/customeros/mailcodec/internal/logger"
	"github.com/customeros/mailcodec/internal/tracing"
)

type Config struct {
	CodecConfig *CodecConfig
	Logger      *logger.Config
	Tracing     *tracing.JaegerConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		CodecConfig: &CodecConfig{},
		Logger:      &logger.Config{},
		Tracing:     &tracing.JaegerConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading mailcodec config: %v", err)
	}

	return config, nil
}
