package main

import (
	"context"
	"log"
	"net/http"

	webAdapter "zoho-sap-gateway/internal/adapters/web"
	"zoho-sap-gateway/internal/config"
	"zoho-sap-gateway/internal/core"
	"zoho-sap-gateway/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	orderService := core.NewOrderService(pool)
	handler := webAdapter.NewHandler(cfg, orderService)

	log.Printf("%s %s listening on :%s", cfg.APITitle, cfg.APIVersion, cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
