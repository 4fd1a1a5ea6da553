package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"footwear-wholesale/internal/apperr"
	"footwear-wholesale/internal/cache"
	"footwear-wholesale/internal/models"
	"footwear-wholesale/internal/pricing"
	"footwear-wholesale/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100

	productCachePrefix = "products:"
)

// ProductHandler serves the catalog endpoints. List and get responses
// are cached; every write invalidates the whole product prefix.
type ProductHandler struct {
	products *repository.ProductRepository
	cache    *cache.Cache
	logger   *slog.Logger
}

func NewProductHandler(products *repository.ProductRepository, c *cache.Cache, logger *slog.Logger) *ProductHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductHandler{products: products, cache: c, logger: logger}
}

// cachedPage is the cached shape of a product listing.
type cachedPage struct {
	Data       []models.Product  `json:"data"`
	Pagination models.Pagination `json:"pagination"`
}

// POST /api/products (admin)
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var product models.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	if err := h.validateProduct(&product); err != nil {
		respondError(c, h.logger, err)
		return
	}

	product.IsActive = true
	if product.MinOrderQuantity < 1 {
		product.MinOrderQuantity = 1
	}
	if product.Currency == "" {
		product.Currency = "USD"
	}

	if err := h.products.Create(c.Request.Context(), &product); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.cache.DeleteByPrefix(productCachePrefix)
	respondData(c, http.StatusCreated, product)
}

// GET /api/products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	filter := h.buildFilter(c)

	cacheKey := productCachePrefix + c.Request.URL.RawQuery
	var page cachedPage
	if found, err := h.cache.Unmarshal(cacheKey, &page); err == nil && found {
		respondList(c, page.Data, page.Pagination)
		return
	}

	products, total, err := h.products.FindAll(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	pagination := models.NewPagination(filter.Page, filter.Limit, total)
	if err := h.cache.Marshal(cacheKey, cachedPage{Data: products, Pagination: pagination}); err != nil {
		h.logger.Warn("failed to cache product page", slog.String("error", err.Error()))
	}
	respondList(c, products, pagination)
}

// GET /api/products/:id
func (h *ProductHandler) GetProductByID(c *gin.Context) {
	product, err := h.products.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, product)
}

// PATCH /api/products/:id (admin)
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var update models.ProductUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	patch := buildProductPatch(update)
	if len(patch) == 0 {
		respondError(c, h.logger, apperr.Validation("no updatable fields provided", nil))
		return
	}

	if err := h.products.Update(c.Request.Context(), c.Param("id"), patch); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.cache.DeleteByPrefix(productCachePrefix)
	product, err := h.products.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, product)
}

// DELETE /api/products/:id (admin, soft delete)
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.products.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.cache.DeleteByPrefix(productCachePrefix)
	respondMessage(c, http.StatusOK, "product deactivated")
}

// inventoryUpdateRequest is the absolute per-size overwrite body.
type inventoryUpdateRequest struct {
	SizeUpdates []models.SizeStock `json:"size_updates" binding:"required,dive"`
}

// PATCH /api/products/:id/inventory (admin)
func (h *ProductHandler) UpdateInventory(c *gin.Context) {
	var req inventoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}
	for _, u := range req.SizeUpdates {
		if u.Inventory < 0 {
			respondError(c, h.logger, apperr.Validation("inventory cannot be negative", map[string]string{
				"size_updates": "inventory for size " + u.Size + " is negative",
			}))
			return
		}
	}

	if err := h.products.SetSizeInventory(c.Request.Context(), c.Param("id"), req.SizeUpdates); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.cache.DeleteByPrefix(productCachePrefix)
	product, err := h.products.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, product)
}

// priceTiersRequest replaces a product's tier table.
type priceTiersRequest struct {
	PriceTiers []models.PriceTier `json:"price_tiers" binding:"required"`
}

// PATCH /api/products/:id/price-tiers (admin)
func (h *ProductHandler) UpdatePriceTiers(c *gin.Context) {
	var req priceTiersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}
	if err := pricing.ValidateTiers(req.PriceTiers); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.products.UpdatePriceTiers(c.Request.Context(), c.Param("id"), req.PriceTiers); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.cache.DeleteByPrefix(productCachePrefix)
	product, err := h.products.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, product)
}

// --- helpers ---

// buildFilter parses the catalog query parameters.
func (h *ProductHandler) buildFilter(c *gin.Context) models.ProductFilter {
	filter := models.ProductFilter{
		Category:  c.Query("category"),
		Brand:     c.Query("brand"),
		Search:    c.Query("search"),
		Color:     c.Query("color"),
		Material:  c.Query("material"),
		Style:     c.Query("style"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}

	if v, err := strconv.ParseInt(c.Query("minPrice"), 10, 64); err == nil && v > 0 {
		filter.MinPriceCents = v
	}
	if v, err := strconv.ParseInt(c.Query("maxPrice"), 10, 64); err == nil && v > 0 {
		filter.MaxPriceCents = v
	}
	if v := c.Query("inStock"); v != "" {
		b := v == "true"
		filter.InStock = &b
	}
	if v := c.Query("isActive"); v != "" {
		b := v == "true"
		filter.IsActive = &b
	}
	if v := c.Query("featured"); v != "" {
		b := v == "true"
		filter.Featured = &b
	}

	filter.Page, filter.Limit = paginationParams(c)
	return filter
}

// paginationParams reads and clamps page/limit.
func paginationParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))

	if page < 1 {
		page = defaultPage
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return page, limit
}

// validateProduct checks the invariants gin binding cannot express.
func (h *ProductHandler) validateProduct(p *models.Product) error {
	details := map[string]string{}
	if p.BasePriceCents < 0 {
		details["base_price_cents"] = "price cannot be negative"
	}
	seen := map[string]bool{}
	for _, s := range p.Sizes {
		if s.Inventory < 0 {
			details["sizes"] = "inventory cannot be negative"
		}
		if seen[s.Size] {
			details["sizes"] = "duplicate size label " + s.Size
		}
		seen[s.Size] = true
	}
	if len(details) > 0 {
		return apperr.Validation("invalid product", details)
	}
	return pricing.ValidateTiers(p.PriceTiers)
}

// buildProductPatch turns the pointer-field update into a $set document.
func buildProductPatch(u models.ProductUpdate) bson.M {
	patch := bson.M{}
	if u.Name != nil {
		patch["name"] = *u.Name
	}
	if u.Description != nil {
		patch["description"] = *u.Description
	}
	if u.Brand != nil {
		patch["brand"] = *u.Brand
	}
	if u.BasePriceCents != nil {
		patch["base_price_cents"] = *u.BasePriceCents
	}
	if u.Currency != nil {
		patch["currency"] = *u.Currency
	}
	if u.Specifications != nil {
		patch["specifications"] = *u.Specifications
	}
	if u.Images != nil {
		patch["images"] = u.Images
	}
	if u.MinOrderQuantity != nil {
		patch["min_order_quantity"] = *u.MinOrderQuantity
	}
	if u.Featured != nil {
		patch["featured"] = *u.Featured
	}
	if u.IsActive != nil {
		patch["is_active"] = *u.IsActive
	}
	if u.Category != nil {
		if objID, err := primitive.ObjectIDFromHex(*u.Category); err == nil {
			patch["category"] = objID
		} else {
			patch["category"] = *u.Category
		}
	}
	return patch
}
