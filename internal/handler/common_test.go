package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go-ticket-reservation/internal/client"
	"go-ticket-reservation/internal/queue"
	"go-ticket-reservation/internal/repository"
	"go-ticket-reservation/internal/service"
	"go-ticket-reservation/internal/store"

	"github.com/gin-gonic/gin"
)

var (
	InvalidJSON = `{"invalid": json}`
)

// create JSON request body
func createJSONRequest(data interface{}) *bytes.Buffer {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return bytes.NewBuffer([]byte(""))
	}
	return bytes.NewBuffer(jsonData)
}

// create HTTP request with JSON body
func createJSONHTTPRequest(method, url string, data interface{}) *http.Request {
	req, err := http.NewRequest(method, url, createJSONRequest(data))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

type testEnv struct {
	router *gin.Engine
	store  store.InventoryStore
}

// setupTestRouter 以記憶體後端組一整套 router，不需要外部基礎設施
func setupTestRouter() *testEnv {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	inventoryStore := store.NewMemoryInventoryStore()
	ticketTypeService := service.NewTicketTypeService(inventoryStore, nil)

	reservationService := service.NewReservationService(
		repository.NewMemoryReservationRepository(),
		client.NewLocalInventoryClient(inventoryStore),
		queue.NewMemoryReleaseQueue(16),
	)

	NewTicketTypeHandler(ticketTypeService).RegisterRoutes(router)
	NewReservationHandler(reservationService).RegisterRoutes(router)

	return &testEnv{router: router, store: inventoryStore}
}
