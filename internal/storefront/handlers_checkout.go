package storefront

import (
	"context"
	"net/http"

	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
	"github.com/gin-gonic/gin"
)

type checkoutAddressRequest struct {
	AddressID string `json:"address_id"`
}

type checkoutPromoRequest struct {
	Code string `json:"code"`
}

func (handler *httpHandler) handleCheckout(ctx *gin.Context) {
	session, err := currentShopper(ctx).Checkout()
	if err != nil {
		handler.respondError(ctx, "checkout", err, checkout.CodeSummaryError)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"checkout": newCheckoutView(session.Snapshot(), handler.composer)})
}

func (handler *httpHandler) handleCheckoutAddress(ctx *gin.Context) {
	var request checkoutAddressRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body"))
		return
	}
	handler.runCheckout(ctx, "select address", checkout.CodeSummaryError, func(requestCtx context.Context, session *checkout.Session) error {
		return session.SelectAddress(requestCtx, request.AddressID)
	})
}

func (handler *httpHandler) handleApplyPromo(ctx *gin.Context) {
	var request checkoutPromoRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body"))
		return
	}
	handler.runCheckout(ctx, "apply promo", checkout.CodeInvalidOrExpired, func(requestCtx context.Context, session *checkout.Session) error {
		return session.ApplyPromoCode(requestCtx, request.Code)
	})
}

func (handler *httpHandler) handleClearPromo(ctx *gin.Context) {
	handler.runCheckout(ctx, "clear promo", checkout.CodeGeneric, func(requestCtx context.Context, session *checkout.Session) error {
		return session.ClearPromo(requestCtx)
	})
}

func (handler *httpHandler) handleCheckoutNext(ctx *gin.Context) {
	current := currentShopper(ctx)
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	snapshot, err := current.AdvanceCheckout(requestCtx)
	handler.respondCheckout(ctx, "checkout next", snapshot, err, checkout.CodeGeneric)
}

func (handler *httpHandler) handleCheckoutBack(ctx *gin.Context) {
	handler.runCheckout(ctx, "checkout back", checkout.CodeGeneric, func(requestCtx context.Context, session *checkout.Session) error {
		return session.Back(requestCtx)
	})
}

func (handler *httpHandler) runCheckout(ctx *gin.Context, operation string, fallbackCode string, action func(context.Context, *checkout.Session) error) {
	session, err := currentShopper(ctx).Checkout()
	if err != nil {
		handler.respondError(ctx, operation, err, fallbackCode)
		return
	}
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	actionErr := action(requestCtx, session)
	handler.respondCheckout(ctx, operation, session.Snapshot(), actionErr, fallbackCode)
}

// respondCheckout always includes the checkout state so the page can render the notice next to it.
func (handler *httpHandler) respondCheckout(ctx *gin.Context, operation string, snapshot checkout.Snapshot, err error, fallbackCode string) {
	view := newCheckoutView(snapshot, handler.composer)
	if err == nil {
		ctx.JSON(http.StatusOK, gin.H{"checkout": view})
		return
	}
	status, code, message := classifyError(err, fallbackCode)
	if status >= http.StatusInternalServerError {
		handler.respondError(ctx, operation, err, fallbackCode)
		return
	}
	body := errorResponse(code, message)
	if snapshot.Step != 0 {
		body["checkout"] = view
	}
	ctx.JSON(status, body)
}
