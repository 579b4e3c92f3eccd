package config

import (
	"os"
)

// Config carries process configuration read from the environment.
type Config struct {
	ServerAddr string
	MongoURI   string
	Database   string
	LogLevel   string
}

// Load reads configuration from environment variables, applying local
// defaults for everything except the MongoDB URI.
func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	database := os.Getenv("MONGODB")
	if database == "" {
		database = "treasurydb"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return Config{
		ServerAddr: "0.0.0.0:" + port,
		MongoURI:   os.Getenv("MONGOURI"),
		Database:   database,
		LogLevel:   logLevel,
	}
}
