package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/service"
	"shop-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	workOrders *service.WorkOrderService
	receiving  *service.ReceivingService
	inventory  *service.InventoryService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	workOrders *service.WorkOrderService,
	receiving *service.ReceivingService,
	inventory *service.InventoryService,
) *Handler {
	return &Handler{
		workOrders: workOrders,
		receiving:  receiving,
		inventory:  inventory,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/receipts", h.receiveStock)
		v1.GET("/lots", h.listPendingLots)
		v1.POST("/work-orders", h.createWorkOrder)
		v1.PUT("/work-orders/:id/parts", h.rebuildWorkOrderParts)
		v1.GET("/work-orders/:id", h.getWorkOrder)
		v1.GET("/inventory/:sku", h.getInventorySnapshot)
		v1.POST("/inventory/:sku/adjustments", h.adjustInventory)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// receiveStock records a received batch as a new lot
func (h *Handler) receiveStock(c *gin.Context) {
	var req service.ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	lot, err := h.receiving.ReceiveStock(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err, "Failed to receive stock")
		return
	}

	c.JSON(http.StatusCreated, lot)
}

// listPendingLots shows lots with stock left, filtered by SKU or destination
func (h *Handler) listPendingLots(c *gin.Context) {
	sku := c.Query("sku")
	destination := c.Query("destination")
	if sku == "" && destination == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sku or destination query parameter required"})
		return
	}

	var (
		lots []models.Lot
		err  error
	)
	if sku != "" {
		lots, err = h.receiving.ListPendingLots(c.Request.Context(), sku)
	} else {
		lots, err = h.receiving.ListPendingLotsByDestination(c.Request.Context(), destination)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list lots",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"lots": lots})
}

// createWorkOrder creates a work order; allocation runs in the background
// after this responds.
func (h *Handler) createWorkOrder(c *gin.Context) {
	var req service.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.workOrders.CreateWorkOrder(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err, "Failed to create work order")
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// rebuildWorkOrderParts replaces a work order's parts list
func (h *Handler) rebuildWorkOrderParts(c *gin.Context) {
	workOrderID, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		Parts []service.PartLineRequest `json:"parts" binding:"required,min=1"`
		Actor string                    `json:"actor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.workOrders.RebuildParts(c.Request.Context(), workOrderID, req.Parts, req.Actor)
	if err != nil {
		respondServiceError(c, err, "Failed to rebuild work order")
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// getWorkOrder returns a work order with its journal rows
func (h *Handler) getWorkOrder(c *gin.Context) {
	workOrderID, ok := paramID(c)
	if !ok {
		return
	}

	wo, records, err := h.workOrders.GetWorkOrder(c.Request.Context(), workOrderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Work order not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"work_order": wo,
		"journal":    records,
	})
}

// getInventorySnapshot returns the balance and pending quantity for a SKU
func (h *Handler) getInventorySnapshot(c *gin.Context) {
	sku := c.Param("sku")

	snap, err := h.inventory.GetSnapshot(c.Request.Context(), sku)
	if err != nil {
		if errors.Is(err, service.ErrUnknownSKU) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown SKU"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to read inventory",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// adjustInventory applies an operator correction to a SKU's on-hand count
func (h *Handler) adjustInventory(c *gin.Context) {
	sku := c.Param("sku")

	var req struct {
		Delta  int    `json:"delta" binding:"required"`
		Actor  string `json:"actor"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.inventory.Adjust(c.Request.Context(), sku, req.Delta, req.Actor, req.Reason); err != nil {
		respondServiceError(c, err, "Failed to adjust inventory")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "adjusted"})
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid work order ID"})
		return 0, false
	}
	return id, true
}

func respondServiceError(c *gin.Context, err error, msg string) {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		return
	}
	if errors.Is(err, service.ErrUnknownSKU) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
