package storefront

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/storefront/internal/shopper"
	"github.com/gin-gonic/gin"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (handler *httpHandler) handleCart(ctx *gin.Context) {
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	state, err := currentShopper(ctx).Cart().Load(requestCtx)
	if err != nil {
		handler.respondError(ctx, "cart", err, errorCodeUpstream)
		return
	}
	ctx.JSON(http.StatusOK, newCartView(state, handler.composer))
}

func (handler *httpHandler) handleAddCartItem(ctx *gin.Context) {
	var request addCartItemRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body"))
		return
	}
	if request.Quantity == 0 {
		request.Quantity = 1
	}
	current := currentShopper(ctx)
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	state, err := current.Cart().Add(requestCtx, request.ProductID, request.Quantity)
	handler.respondCartMutation(ctx, current, "add to cart", state, err)
}

func (handler *httpHandler) handleUpdateCartItem(ctx *gin.Context) {
	var request updateCartItemRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body"))
		return
	}
	current := currentShopper(ctx)
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	state, err := current.Cart().Update(requestCtx, ctx.Param("item_id"), request.Quantity)
	handler.respondCartMutation(ctx, current, "update cart", state, err)
}

func (handler *httpHandler) handleRemoveCartItem(ctx *gin.Context) {
	current := currentShopper(ctx)
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	state, err := current.Cart().Remove(requestCtx, ctx.Param("item_id"))
	handler.respondCartMutation(ctx, current, "remove from cart", state, err)
}

// respondCartMutation restarts checkout because its summary no longer matches the cart.
func (handler *httpHandler) respondCartMutation(ctx *gin.Context, current *shopper.Shopper, operation string, state shopper.CartState, err error) {
	if err != nil {
		handler.respondError(ctx, operation, err, errorCodeUpstream)
		return
	}
	current.ResetCheckout()
	ctx.JSON(http.StatusOK, newCartView(state, handler.composer))
}
