package storefront

import (
	"net/http"
	"strconv"

	"github.com/MarkoPoloResearchLab/storefront/internal/storeapi"
	"github.com/gin-gonic/gin"
)

const (
	defaultProductPageSize = 24
	maxProductPageSize     = 100
)

func (handler *httpHandler) handleProducts(ctx *gin.Context) {
	query := storeapi.ProductQuery{
		Category: ctx.Query("category"),
		Search:   ctx.Query("q"),
		Sort:     ctx.Query("sort"),
		Page:     positiveQueryInt(ctx, "page", 1),
		Limit:    positiveQueryInt(ctx, "limit", defaultProductPageSize),
	}
	if query.Limit > maxProductPageSize {
		query.Limit = maxProductPageSize
	}
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	page, err := currentShopper(ctx).API().Products(requestCtx, query)
	if err != nil {
		handler.respondError(ctx, "products", err, errorCodeUpstream)
		return
	}
	if page.Items == nil {
		page.Items = []storeapi.Product{}
	}
	ctx.JSON(http.StatusOK, page)
}

func (handler *httpHandler) handleProduct(ctx *gin.Context) {
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	product, err := currentShopper(ctx).API().Product(requestCtx, ctx.Param("slug"))
	if err != nil {
		handler.respondError(ctx, "product", err, errorCodeUpstream)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"product":       product,
		"display_price": handler.composer.Format(product.Price),
	})
}

func (handler *httpHandler) handleCategories(ctx *gin.Context) {
	requestCtx, cancel := handler.upstreamContext(ctx)
	defer cancel()
	categories, err := currentShopper(ctx).API().Categories(requestCtx)
	if err != nil {
		handler.respondError(ctx, "categories", err, errorCodeUpstream)
		return
	}
	if categories == nil {
		categories = []storeapi.Category{}
	}
	ctx.JSON(http.StatusOK, gin.H{"categories": categories})
}

func positiveQueryInt(ctx *gin.Context, name string, fallback int) int {
	value, err := strconv.Atoi(ctx.Query(name))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
