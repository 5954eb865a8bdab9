package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/handlers"
	authmw "github.com/eggmart/eggmart/internal/middleware/auth"
)

type Deps struct {
	DB        *gorm.DB
	JWTSecret []byte

	AuthHandler         *handlers.AuthHandler
	ProductHandler      *handlers.ProductHandler
	CategoryHandler     *handlers.CategoryHandler
	CartHandler         *handlers.CartHandler
	FavoriteHandler     *handlers.FavoriteHandler
	SaleHandler         *handlers.SaleHandler
	OrderHandler        *handlers.OrderHandler
	NotificationHandler *handlers.NotificationHandler
	RatingHandler       *handlers.RatingHandler
	SearchHandler       *handlers.SearchHandler
	UploadHandler       *handlers.UploadHandler

	UploadDir string
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.Static("/uploads", d.UploadDir)

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)

	v1.GET("/products", d.ProductHandler.GetProducts)
	v1.GET("/products/:id", d.ProductHandler.GetProduct)
	v1.GET("/products/:id/ratings", d.RatingHandler.ListForProduct)
	v1.GET("/categories", d.CategoryHandler.List)
	v1.GET("/search", d.SearchHandler.Search)

	user := v1.Group("", authmw.RequireUser(d.JWTSecret))

	user.GET("/me", d.AuthHandler.Me)

	user.GET("/cart", d.CartHandler.GetCart)
	user.POST("/cart", d.CartHandler.AddToCart)
	user.PATCH("/cart/:id", d.CartHandler.SetQuantity)
	user.DELETE("/cart/:id", d.CartHandler.DeleteFromCart)

	user.GET("/favorites", d.FavoriteHandler.List)
	user.POST("/favorites", d.FavoriteHandler.Add)
	user.DELETE("/favorites/:id", d.FavoriteHandler.Remove)

	user.POST("/orders", d.OrderHandler.Checkout)
	user.GET("/orders", d.OrderHandler.MyOrders)
	user.GET("/orders/:id", d.OrderHandler.OrderDetail)
	user.POST("/orders/:id/rating", d.RatingHandler.Create)

	user.GET("/notifications", d.NotificationHandler.List)
	user.POST("/notifications", d.NotificationHandler.Create)
	user.PATCH("/notifications/:id/read", d.NotificationHandler.MarkRead)
	user.DELETE("/notifications/:id", d.NotificationHandler.Delete)
	user.GET("/notifications/sales", d.NotificationHandler.SaleFeed)

	admin := v1.Group("/admin", authmw.RequireAdmin(d.JWTSecret))

	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	admin.POST("/categories", d.CategoryHandler.Create)
	admin.DELETE("/categories/:id", d.CategoryHandler.Delete)

	admin.GET("/sales", d.SaleHandler.List)
	admin.POST("/sales", d.SaleHandler.Create)
	admin.PATCH("/sales/:id", d.SaleHandler.Update)
	admin.DELETE("/sales/:id", d.SaleHandler.Delete)

	admin.GET("/orders", d.OrderHandler.AdminList)
	admin.PATCH("/orders/:id/status", d.OrderHandler.AdminSetStatus)

	admin.POST("/upload", d.UploadHandler.Upload)
}
