package main

import (
	"context"

	"room-broker/config"
	"room-broker/internal/bootstrap"
	_ "room-broker/log"

	"go.uber.org/zap"
)

func main() {
	appConfig := config.Read()
	defer zap.L().Sync()

	if err := appConfig.Validate(); err != nil {
		zap.L().Fatal("Invalid configuration", zap.Error(err))
	}
	zap.L().Info("app starting...", zap.String("app name", appConfig.App.Name), zap.String("version", appConfig.App.Version))

	app := bootstrap.NewApp(context.Background(), appConfig)

	app.Start()
}
