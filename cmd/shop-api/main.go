package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/aq2208/gorder-shop/cmd/shop-api/app"
	"github.com/aq2208/gorder-shop/configs"
	"github.com/aq2208/gorder-shop/internal/logging"
	gfshutdown "github.com/gelmium/graceful-shutdown"
)

func main() {
	env := os.Getenv("APP_ENV") // dev | staging | prod
	if env == "" {
		env = "dev"
	}

	cfg, err := configs.Load("configs", env)
	if err != nil {
		log.Fatal(err)
	}
	l := logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)

	a, err := app.InitWithConfig(context.Background(), cfg)
	if err != nil {
		l.Error("startup failed", "err", err)
		os.Exit(1)
	}

	go func() {
		l.Info("shop-api listening", "env", env, "addr", cfg.App.HTTPAddr, "storage", cfg.Storage.Driver)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http server stopped", "err", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.HTTP.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"shop-api": func(ctx context.Context) error {
				l.Info("graceful shutdown initiated")
				return a.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	l.Info("shop-api exited", "code", exitCode)
	os.Exit(exitCode)
}
