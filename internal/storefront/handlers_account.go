package storefront

import (
	"net/http"
	"strings"

	"github.com/MarkoPoloResearchLab/storefront/internal/storeapi"
	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
	"github.com/gin-gonic/gin"
)

type wishlistRequest struct {
	ProductID string `json:"product_id"`
}

type leadNoteRequest struct {
	Body string `json:"body"`
}

func (handler *httpHandler) handleWishlist(ctx *gin.Context) {
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	items, err := currentShopper(ctx).API().Wishlist(requestCtx)
	if err != nil {
		handler.respondError(ctx, "wishlist", err, errorCodeUpstream)
		return
	}
	if items == nil {
		items = []storeapi.WishlistItem{}
	}
	ctx.JSON(http.StatusOK, gin.H{"items": items})
}

func (handler *httpHandler) handleAddToWishlist(ctx *gin.Context) {
	var request wishlistRequest
	if err := ctx.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.ProductID) == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "product_id is required"))
		return
	}
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	if err := currentShopper(ctx).API().AddToWishlist(requestCtx, strings.TrimSpace(request.ProductID)); err != nil {
		handler.respondError(ctx, "add to wishlist", err, errorCodeUpstream)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handleRemoveFromWishlist(ctx *gin.Context) {
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	if err := currentShopper(ctx).API().RemoveFromWishlist(requestCtx, ctx.Param("product_id")); err != nil {
		handler.respondError(ctx, "remove from wishlist", err, errorCodeUpstream)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handleAddresses(ctx *gin.Context) {
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	addresses, err := currentShopper(ctx).API().Addresses(requestCtx)
	if err != nil {
		handler.respondError(ctx, "addresses", err, errorCodeUpstream)
		return
	}
	if addresses == nil {
		addresses = []checkout.Address{}
	}
	ctx.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

func (handler *httpHandler) handleCreateAddress(ctx *gin.Context) {
	var address checkout.Address
	if err := ctx.ShouldBindJSON(&address); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body"))
		return
	}
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	created, err := currentShopper(ctx).API().CreateAddress(requestCtx, address)
	if err != nil {
		handler.respondError(ctx, "create address", err, errorCodeUpstream)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"address": created})
}

func (handler *httpHandler) handleOrders(ctx *gin.Context) {
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	orders, err := currentShopper(ctx).API().MyOrders(requestCtx)
	if err != nil {
		handler.respondError(ctx, "orders", err, errorCodeUpstream)
		return
	}
	if orders == nil {
		orders = []storeapi.Order{}
	}
	ctx.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (handler *httpHandler) handleOrder(ctx *gin.Context) {
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	order, err := currentShopper(ctx).API().Order(requestCtx, ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, "order", err, errorCodeUpstream)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"order":               order,
		"display_grand_total": handler.composer.Format(order.Amounts.GrandTotal),
	})
}

func (handler *httpHandler) handleOrderTimeline(ctx *gin.Context) {
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	events, err := currentShopper(ctx).API().OrderTimeline(requestCtx, ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, "order timeline", err, errorCodeUpstream)
		return
	}
	if events == nil {
		events = []storeapi.TimelineEvent{}
	}
	ctx.JSON(http.StatusOK, gin.H{"events": events})
}

func (handler *httpHandler) handleCreateLead(ctx *gin.Context) {
	var request storeapi.LeadRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body"))
		return
	}
	if strings.TrimSpace(request.Name) == "" || strings.TrimSpace(request.Email) == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "name and email are required"))
		return
	}
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	lead, err := currentShopper(ctx).API().CreateLead(requestCtx, request)
	if err != nil {
		handler.respondError(ctx, "create lead", err, errorCodeUpstream)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"lead": lead})
}

func (handler *httpHandler) handleLeadNotes(ctx *gin.Context) {
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	notes, err := currentShopper(ctx).API().LeadNotes(requestCtx, ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, "lead notes", err, errorCodeUpstream)
		return
	}
	if notes == nil {
		notes = []storeapi.LeadNote{}
	}
	ctx.JSON(http.StatusOK, gin.H{"notes": notes})
}

func (handler *httpHandler) handleAddLeadNote(ctx *gin.Context) {
	var request leadNoteRequest
	if err := ctx.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Body) == "" {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "body is required"))
		return
	}
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	note, err := currentShopper(ctx).API().AddLeadNote(requestCtx, ctx.Param("id"), strings.TrimSpace(request.Body))
	if err != nil {
		handler.respondError(ctx, "add lead note", err, errorCodeUpstream)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"note": note})
}
