package mssql

import "os"

// FromEnv reads source connection settings from the environment.
// Validation is deferred to Open so callers can report all missing
// variables at once.
func FromEnv() Config {
	return Config{
		Server:   os.Getenv("DB_SERVER"),
		Database: os.Getenv("DB_NAME"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Table:    os.Getenv("DB_TABLE"),
	}
}
