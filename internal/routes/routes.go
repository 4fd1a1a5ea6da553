package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"footwear-wholesale/internal/auth"
	"footwear-wholesale/internal/handlers"
	"footwear-wholesale/internal/middleware"
)

// Deps carries the wired handlers and middleware dependencies.
type Deps struct {
	Products   *handlers.ProductHandler
	Orders     *handlers.OrderHandler
	Users      *handlers.UserHandler
	Categories *handlers.CategoryHandler
	Tokens     *auth.TokenManager
	Limiter    *middleware.Limiter
}

// RegisterRoutes wires the API surface.
func RegisterRoutes(router *gin.Engine, deps Deps) {
	requireAuth := middleware.RequireAuth(deps.Tokens)
	requireAdmin := middleware.RequireAdmin()
	rateLimit := middleware.RateLimit(deps.Limiter)

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		users := api.Group("/users")
		{
			users.POST("/register", rateLimit, deps.Users.Register)
			users.POST("/login", rateLimit, deps.Users.Login)
			users.GET("/me", requireAuth, deps.Users.Me)
			users.PATCH("/me", requireAuth, deps.Users.UpdateProfile)
			users.PUT("/me/password", requireAuth, deps.Users.ChangePassword)
			users.GET("", requireAuth, requireAdmin, deps.Users.ListUsers)
			users.PATCH("/:id/approve", requireAuth, requireAdmin, deps.Users.ApproveUser)
			users.PATCH("/:id/role", requireAuth, requireAdmin, deps.Users.SetUserRole)
		}

		products := api.Group("/products")
		{
			products.GET("", deps.Products.GetProducts)
			products.GET("/:id", deps.Products.GetProductByID)
			products.POST("", requireAuth, requireAdmin, deps.Products.CreateProduct)
			products.PATCH("/:id", requireAuth, requireAdmin, deps.Products.UpdateProduct)
			products.DELETE("/:id", requireAuth, requireAdmin, deps.Products.DeleteProduct)
			products.PATCH("/:id/inventory", requireAuth, requireAdmin, deps.Products.UpdateInventory)
			products.PATCH("/:id/price-tiers", requireAuth, requireAdmin, deps.Products.UpdatePriceTiers)
		}

		categories := api.Group("/categories")
		{
			categories.GET("", deps.Categories.GetCategories)
			categories.GET("/:id", deps.Categories.GetCategoryByID)
			categories.POST("", requireAuth, requireAdmin, deps.Categories.CreateCategory)
			categories.PATCH("/:id", requireAuth, requireAdmin, deps.Categories.UpdateCategory)
			categories.DELETE("/:id", requireAuth, requireAdmin, deps.Categories.DeleteCategory)
		}

		orders := api.Group("/orders", requireAuth)
		{
			orders.POST("", deps.Orders.CreateOrder)
			orders.GET("", deps.Orders.GetOrders)
			orders.GET("/:id", deps.Orders.GetOrderByID)
			orders.PUT("/:id", requireAdmin, deps.Orders.UpdateOrder)
		}
	}
}
