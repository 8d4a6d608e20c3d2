package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"go-ticket-reservation/config"
	"go-ticket-reservation/internal/cache"
	"go-ticket-reservation/internal/client"
	"go-ticket-reservation/internal/database"
	"go-ticket-reservation/internal/handler"
	"go-ticket-reservation/internal/queue"
	"go-ticket-reservation/internal/repository"
	"go-ticket-reservation/internal/service"
	"go-ticket-reservation/internal/store"
	"go-ticket-reservation/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	// 庫存端：postgres 帳本 + redis 可售投影
	inventoryStore := store.NewPostgresInventoryStore(pool)
	availabilityCache := cache.NewAvailabilityCache(rdb)
	ticketTypeService := service.NewTicketTypeService(inventoryStore, availabilityCache)

	// pending release 隊列 + 重試 worker
	releaseQueue, err := queue.NewRedisStreamReleaseQueue(rdb, "", nil)
	if err != nil {
		log.Fatalf("Failed to initialize release queue: %v", err)
	}

	releaseWorker := worker.NewReleaseWorker(inventoryStore, releaseQueue)
	if err := releaseWorker.Start(ctx); err != nil {
		log.Fatalf("Failed to start release worker: %v", err)
	}

	// 預約端：依設定決定同進程或跨服務呼叫庫存
	var inventoryClient client.InventoryClient
	switch cfg.Inventory.Mode {
	case "http":
		inventoryClient = client.NewHTTPInventoryClient(cfg.Inventory.Endpoint, cfg.Inventory.Timeout)
	default:
		inventoryClient = client.NewLocalInventoryClient(inventoryStore)
	}

	reservationRepository := repository.NewPostgresReservationRepository(pool)
	reservationService := service.NewReservationService(reservationRepository, inventoryClient, releaseQueue)

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	handler.NewTicketTypeHandler(ticketTypeService).RegisterRoutes(router)
	handler.NewReservationHandler(reservationService).RegisterRoutes(router)

	if err := router.Run(fmt.Sprintf(":%s", cfg.Server.Port)); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
