// Package main provides the entry point for the Chime soundboard bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chimebot/chime/internal/app"
	"github.com/chimebot/chime/internal/audio"
	"github.com/chimebot/chime/internal/bot"
	"github.com/chimebot/chime/internal/catalog"
	"github.com/chimebot/chime/internal/commands"
	"github.com/chimebot/chime/internal/config"
	"github.com/chimebot/chime/internal/discord"
	"github.com/chimebot/chime/internal/infrastructure"
	"github.com/chimebot/chime/internal/voice"
	pkginfra "github.com/chimebot/chime/pkg/infrastructure"

	"go.uber.org/fx"
)

func main() {
	configPath := "config.yaml"
	if env := os.Getenv("CHIME_CONFIG"); env != "" {
		configPath = env
	}

	application := app.New(
		// Core modules
		config.Module,
		infrastructure.LoggerModule,

		// External service modules
		discord.Module,

		// Application modules
		audio.Module,
		catalog.Module,
		voice.Module,
		commands.Module,
		bot.Module,

		// Supply the config path
		fx.Supply(configPath),

		// Configure Fx to use our Zap logger for its own internal logging
		fx.WithLogger(pkginfra.NewFxLoggerAdapter),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go application.Run()

	sig := <-sigCh
	fmt.Printf("Received signal: %s, initiating shutdown.\n", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	err := application.Stop(shutdownCtx)
	cancel()

	if err != nil {
		fmt.Printf("Error during shutdown: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Application has shut down gracefully.")
}
