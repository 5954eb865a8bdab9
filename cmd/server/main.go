package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/eggmart/eggmart/internal/config"
	"github.com/eggmart/eggmart/internal/db"
	"github.com/eggmart/eggmart/internal/es"
	"github.com/eggmart/eggmart/internal/handlers"
	"github.com/eggmart/eggmart/internal/logging"
	loggingmw "github.com/eggmart/eggmart/internal/middleware/logging"
	"github.com/eggmart/eggmart/internal/mykafka"
	httpserver "github.com/eggmart/eggmart/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(configuration.JWT_SECRET, "JWT_SECRET")

	logger := logging.New(configuration.LogLevel)
	slog.SetDefault(logger)

	database, err := db.Shared(context.Background(), configuration.DSN())
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	prod := mykafka.NewProducer(configuration.KafkaBrokers)

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:        database,
		JWTSecret: jwtSecret,

		AuthHandler:         &handlers.AuthHandler{DB: database, JWTSecret: jwtSecret, Producer: prod},
		ProductHandler:      &handlers.ProductHandler{DB: database, Producer: prod, ES: esClient, ESIndex: configuration.ES_INDEX},
		CategoryHandler:     &handlers.CategoryHandler{DB: database},
		CartHandler:         &handlers.CartHandler{DB: database, Producer: prod},
		FavoriteHandler:     &handlers.FavoriteHandler{DB: database, Producer: prod},
		SaleHandler:         &handlers.SaleHandler{DB: database, Producer: prod},
		OrderHandler:        &handlers.OrderHandler{DB: database, Producer: prod},
		NotificationHandler: &handlers.NotificationHandler{DB: database},
		RatingHandler:       &handlers.RatingHandler{DB: database},
		SearchHandler:       &handlers.SearchHandler{ES: esClient, Index: configuration.ES_INDEX},
		UploadHandler:       &handlers.UploadHandler{Dir: configuration.UploadDir},

		UploadDir: configuration.UploadDir,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", configuration.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if err := db.Close(); err != nil {
		log.Printf("db close error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
