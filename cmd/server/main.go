// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/huex/liarbar/internal/auth"
	"github.com/huex/liarbar/internal/cache"
	"github.com/huex/liarbar/internal/database"
	"github.com/huex/liarbar/internal/handlers"
	"github.com/huex/liarbar/internal/middleware"
	"github.com/huex/liarbar/internal/registry"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := auth.Init(); err != nil {
		log.Fatalf("auth init: %v", err)
	}

	ctx := context.Background()

	// Both stores are optional: without postgres guests are memory-only,
	// without redis the action historian is off.
	if os.Getenv("PG_HOST") != "" {
		if err := database.Connect(ctx); err != nil {
			logger.Warnf("database unavailable, guest accounts are memory-only: %v", err)
		}
	}
	if err := cache.Connect(ctx); err != nil {
		logger.Warnf("redis unavailable, action history disabled: %v", err)
	}

	reg := registry.New()
	dispatcher := handlers.NewDispatcher(reg, logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, dispatcher),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
