// Package config loads streamkit configuration from YAML files, .env files
// and environment variables.
//
// It uses Viper for file loading and unmarshalling and godotenv for .env
// files. Environment variables override file values: with the default prefix
// derived from the config name, PRICES_STREAMS_TICKER_ENDPOINT overrides
// streams.ticker.endpoint when loading "prices".
//
// # Usage
//
//	var cfg config.Config
//	if err := config.Load("prices", &cfg); err != nil {
//	    return err
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
