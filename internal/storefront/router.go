package storefront

import (
	"context"
	"net/http"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/internal/clientstate"
	"github.com/MarkoPoloResearchLab/storefront/internal/shopper"
	"github.com/MarkoPoloResearchLab/storefront/pkg/checkout"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const contextKeyShopper = "storefront_shopper"

// NewRouter wires the JSON endpoints that back the storefront pages.
func NewRouter(cfg Config, registry *Registry, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := &httpHandler{
		cfg:      cfg,
		registry: registry,
		composer: checkout.NewComposer(cfg.CurrencyCode),
		logger:   logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(handler.identifyVisitor)

	api.GET("/session", handler.handleSession)
	api.DELETE("/session", handler.handleResetSession)
	api.POST("/auth/login", handler.handleLogin)
	api.POST("/auth/register", handler.handleRegister)
	api.POST("/auth/logout", handler.handleLogout)

	api.GET("/products", handler.handleProducts)
	api.GET("/products/:slug", handler.handleProduct)
	api.GET("/categories", handler.handleCategories)

	api.GET("/cart", handler.handleCart)
	api.POST("/cart/items", handler.handleAddCartItem)
	api.PATCH("/cart/items/:item_id", handler.handleUpdateCartItem)
	api.DELETE("/cart/items/:item_id", handler.handleRemoveCartItem)

	api.POST("/leads", handler.handleCreateLead)

	member := api.Group("")
	member.Use(handler.requireLogin)

	member.GET("/profile", handler.handleProfile)
	member.PUT("/profile", handler.handleUpdateProfile)

	member.GET("/wishlist", handler.handleWishlist)
	member.POST("/wishlist", handler.handleAddToWishlist)
	member.DELETE("/wishlist/:product_id", handler.handleRemoveFromWishlist)

	member.GET("/addresses", handler.handleAddresses)
	member.POST("/addresses", handler.handleCreateAddress)

	member.GET("/checkout", handler.handleCheckout)
	member.POST("/checkout/address", handler.handleCheckoutAddress)
	member.POST("/checkout/promo", handler.handleApplyPromo)
	member.DELETE("/checkout/promo", handler.handleClearPromo)
	member.POST("/checkout/next", handler.handleCheckoutNext)
	member.POST("/checkout/back", handler.handleCheckoutBack)

	member.GET("/orders", handler.handleOrders)
	member.GET("/orders/:id", handler.handleOrder)
	member.GET("/orders/:id/timeline", handler.handleOrderTimeline)

	member.GET("/leads/:id/notes", handler.handleLeadNotes)
	member.POST("/leads/:id/notes", handler.handleAddLeadNote)

	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, errorResponse(errorCodeNotFound, "page not found"))
	})

	return router
}

type httpHandler struct {
	cfg      Config
	registry *Registry
	composer checkout.Composer
	logger   *zap.Logger
}

// identifyVisitor resolves the visitor cookie, issuing a new id when it is absent or malformed.
func (handler *httpHandler) identifyVisitor(ctx *gin.Context) {
	visitorID, err := clientstate.NewVisitorID(cookieValue(ctx, handler.cfg.VisitorCookieName))
	if err != nil {
		visitorID = clientstate.GenerateVisitorID()
		ctx.SetSameSite(http.SameSiteLaxMode)
		ctx.SetCookie(handler.cfg.VisitorCookieName, visitorID.String(), int(visitorCookieMaxAge.Seconds()), "/", "", handler.cfg.VisitorCookieSecure, true)
	}
	current, err := handler.registry.Acquire(ctx.Request.Context(), visitorID)
	if err != nil {
		handler.logger.Error("shopper restore failed", zap.String("visitor_id", visitorID.String()), zap.Error(err))
		ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse(errorCodeVisitorUnavailable, "visitor state unavailable"))
		return
	}
	if err := current.Auth().EnsureFresh(ctx.Request.Context()); err != nil {
		handler.logger.Warn("token refresh failed", zap.String("visitor_id", visitorID.String()), zap.Error(err))
	}
	ctx.Set(contextKeyShopper, current)
	ctx.Next()
}

func (handler *httpHandler) requireLogin(ctx *gin.Context) {
	if !currentShopper(ctx).Auth().Current().LoggedIn() {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorCodeUnauthorized, "Please log in to continue."))
		return
	}
	ctx.Next()
}

func cookieValue(ctx *gin.Context, name string) string {
	value, err := ctx.Cookie(name)
	if err != nil {
		return ""
	}
	return value
}

func currentShopper(ctx *gin.Context) *shopper.Shopper {
	value, _ := ctx.Get(contextKeyShopper)
	current, _ := value.(*shopper.Shopper)
	return current
}

// upstreamContext bounds a remote call by the configured API timeout.
func (handler *httpHandler) upstreamContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), handler.cfg.APITimeout)
}

func (handler *httpHandler) respondError(ctx *gin.Context, operation string, err error, fallbackCode string) {
	status, code, message := classifyError(err, fallbackCode)
	if status >= http.StatusInternalServerError {
		handler.logger.Error(operation+" failed", zap.Error(err))
	}
	ctx.JSON(status, errorResponse(code, message))
}
