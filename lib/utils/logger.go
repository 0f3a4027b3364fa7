package utils

import (
	"os"

	"go.uber.org/zap"
)

func SetupLogger() *zap.SugaredLogger {
	logger := zap.Must(zap.NewDevelopment())
	if os.Getenv("REVLOG_ENV") == "production" {
		logger = zap.Must(zap.NewProduction())
	}
	sugar := logger.Sugar()

	return sugar
}
