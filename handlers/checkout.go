package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"storefront-backend/internal/orders"
	"storefront-backend/internal/stores/kafka"
	"storefront-backend/pkg/ctxmanage"
	"storefront-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// Checkout converts the user's cart into an order. The order, its line
// items, and the cart clear either all happen or none do.
func (h *Handler) Checkout(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	userID, ok := userIDFromRequest(c)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	order, err := h.o.Checkout(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrNotAuthenticated):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		case errors.Is(err, orders.ErrEmptyCart):
			slog.Info("checkout on empty cart", slog.String(logkey.TraceID, traceId), slog.Int64(logkey.UserID, userID))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Shopping cart is empty"})
		case errors.Is(err, orders.ErrProductUnavailable):
			slog.Error("checkout hit unavailable product", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()), slog.Int64(logkey.UserID, userID))
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "A product in the cart is no longer available"})
		default:
			slog.Error("checkout failed", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()), slog.Int64(logkey.UserID, userID))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		}
		return
	}

	slog.Info("order created", slog.String(logkey.TraceID, traceId),
		slog.Int64(logkey.OrderID, order.OrderID), slog.Int64(logkey.UserID, userID),
		slog.Int("line_items", len(order.Items)))

	// Event publishing is best effort; the order is already committed.
	if h.k != nil {
		event := kafka.OrderCreatedEvent{
			OrderID:   order.OrderID,
			UserID:    order.UserID,
			Status:    order.Status,
			CreatedAt: order.CreatedAt,
		}
		for _, item := range order.Items {
			event.Items = append(event.Items, kafka.OrderCreatedItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}
		if err := h.k.ProduceOrderCreated(c.Request.Context(), event); err != nil {
			slog.Error("failed to publish order created event", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()), slog.Int64(logkey.OrderID, order.OrderID))
		}
	}

	c.JSON(http.StatusCreated, order)
}
