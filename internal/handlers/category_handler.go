package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"footwear-wholesale/internal/apperr"
	"footwear-wholesale/internal/cache"
	"footwear-wholesale/internal/models"
	"footwear-wholesale/internal/repository"
)

const categoryCachePrefix = "categories:"

// CategoryHandler serves the category endpoints.
type CategoryHandler struct {
	categories *repository.CategoryRepository
	cache      *cache.Cache
	logger     *slog.Logger
}

func NewCategoryHandler(categories *repository.CategoryRepository, c *cache.Cache, logger *slog.Logger) *CategoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryHandler{categories: categories, cache: c, logger: logger}
}

// GET /api/categories
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	activeOnly := c.Query("includeInactive") != "true"

	cacheKey := categoryCachePrefix + c.Request.URL.RawQuery
	var cached []models.Category
	if found, err := h.cache.Unmarshal(cacheKey, &cached); err == nil && found {
		respondData(c, http.StatusOK, cached)
		return
	}

	categories, err := h.categories.FindAll(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.cache.Marshal(cacheKey, categories); err != nil {
		h.logger.Warn("failed to cache categories", slog.String("error", err.Error()))
	}
	respondData(c, http.StatusOK, categories)
}

// GET /api/categories/:id
func (h *CategoryHandler) GetCategoryByID(c *gin.Context) {
	category, err := h.categories.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, category)
}

// POST /api/categories (admin)
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var category models.Category
	if err := c.ShouldBindJSON(&category); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}
	category.IsActive = true

	if err := h.categories.Create(c.Request.Context(), &category); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.cache.DeleteByPrefix(categoryCachePrefix)
	respondData(c, http.StatusCreated, category)
}

// PATCH /api/categories/:id (admin)
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	var update models.CategoryUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	patch := bson.M{}
	if update.Name != nil {
		patch["name"] = *update.Name
	}
	if update.Slug != nil {
		patch["slug"] = *update.Slug
	}
	if update.Description != nil {
		patch["description"] = *update.Description
	}
	if update.IsActive != nil {
		patch["is_active"] = *update.IsActive
	}
	if len(patch) == 0 {
		respondError(c, h.logger, apperr.Validation("no updatable fields provided", nil))
		return
	}

	if err := h.categories.Update(c.Request.Context(), c.Param("id"), patch); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.cache.DeleteByPrefix(categoryCachePrefix)
	category, err := h.categories.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, category)
}

// DELETE /api/categories/:id (admin, soft delete)
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	if err := h.categories.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.cache.DeleteByPrefix(categoryCachePrefix)
	respondMessage(c, http.StatusOK, "category deactivated")
}
