package main

import (
	_ "github.com/lib/pq"

	"github.com/OFFIS-RIT/tabula/backend/internal/config"
	"github.com/OFFIS-RIT/tabula/backend/internal/server"
	"github.com/OFFIS-RIT/tabula/backend/internal/util"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger"
	"github.com/OFFIS-RIT/tabula/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Prefix: "server",
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "err", err)
	}

	server.Init(cfg)
}
