package config

import "go.uber.org/zap"

// setLogger picks the zap preset for env. Anything that is not production or
// development gets the human readable example logger.
func setLogger(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	default:
		return zap.NewExample(), nil
	}
}
