package logging

import "go.uber.org/zap"

// New creates a new zap logger for standalone tools that run without the
// service config
func New() *zap.SugaredLogger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		logger = zap.NewExample()
	}
	return logger.Sugar()
}
