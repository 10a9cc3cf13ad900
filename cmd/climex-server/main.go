package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"climex/internal/app"
)

func main() {
	// A .env file is optional; real environment variables win when both
	// define the same key.
	_ = godotenv.Load()

	application, err := app.NewApplication(context.Background())
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
