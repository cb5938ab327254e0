package storefront

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/storefront/internal/storeapi"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (handler *httpHandler) handleSession(ctx *gin.Context) {
	current := currentShopper(ctx)
	ctx.JSON(http.StatusOK, gin.H{
		"visitor_id": current.VisitorID().String(),
		"session_id": current.SessionID(),
		"auth":       newAuthView(current.Auth().Current()),
		"cart":       newCartView(current.Cart().Current(), handler.composer),
	})
}

// handleResetSession erases the visitor's state and expires the cookie, like clearing site data.
func (handler *httpHandler) handleResetSession(ctx *gin.Context) {
	current := currentShopper(ctx)
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	err := current.Forget(requestCtx)
	handler.registry.Evict(current.VisitorID())
	if err != nil {
		handler.respondError(ctx, "reset session", err, errorCodeInternal)
		return
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(handler.cfg.VisitorCookieName, "", -1, "/", "", handler.cfg.VisitorCookieSecure, true)
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handleLogin(ctx *gin.Context) {
	var credentials storeapi.Credentials
	if err := ctx.ShouldBindJSON(&credentials); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body"))
		return
	}
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	state, err := currentShopper(ctx).Auth().Login(requestCtx, credentials)
	if err != nil {
		handler.respondError(ctx, "login", err, errorCodeUnauthorized)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"auth": newAuthView(state)})
}

func (handler *httpHandler) handleRegister(ctx *gin.Context) {
	var registration storeapi.Registration
	if err := ctx.ShouldBindJSON(&registration); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body"))
		return
	}
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	state, err := currentShopper(ctx).Auth().Register(requestCtx, registration)
	if err != nil {
		handler.respondError(ctx, "register", err, errorCodeInvalidPayload)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"auth": newAuthView(state)})
}

func (handler *httpHandler) handleLogout(ctx *gin.Context) {
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	if err := currentShopper(ctx).Auth().Logout(requestCtx); err != nil {
		handler.logger.Warn("logout cleanup failed", zap.Error(err))
	}
	ctx.JSON(http.StatusOK, gin.H{"auth": newAuthView(currentShopper(ctx).Auth().Current())})
}

func (handler *httpHandler) handleProfile(ctx *gin.Context) {
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	user, err := currentShopper(ctx).API().Me(requestCtx)
	if err != nil {
		handler.respondError(ctx, "profile", err, errorCodeUpstream)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user": user})
}

func (handler *httpHandler) handleUpdateProfile(ctx *gin.Context) {
	var update storeapi.ProfileUpdate
	if err := ctx.ShouldBindJSON(&update); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorCodeInvalidPayload, "expected JSON body"))
		return
	}
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	user, err := currentShopper(ctx).API().UpdateProfile(requestCtx, update)
	if err != nil {
		handler.respondError(ctx, "update profile", err, errorCodeUpstream)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"user": user})
}
