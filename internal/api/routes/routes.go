package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/smartshopai/smartshop/internal/api/handlers"
	"github.com/smartshopai/smartshop/internal/api/middleware"
)

type Deps struct {
	Auth    *handlers.AuthHandler
	Product *handlers.ProductHandler
	Chat    *handlers.ChatHandler
	Cart    *handlers.CartHandler
	Speech  *handlers.SpeechHandler
	Media   *handlers.MediaHandler
	WS      *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Public storefront
	r.POST("/auth/signin", d.Auth.SignIn)
	r.GET("/products", d.Product.List)
	r.GET("/products/suggest", d.Product.Suggest)
	r.GET("/products/:product_id", d.Product.Get)

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.GET("/products/search", d.Product.Search)

	auth.GET("/chat/history", d.Chat.History)
	auth.POST("/chat/message", d.Chat.Send)

	auth.GET("/cart", d.Cart.Get)
	auth.POST("/cart/items", d.Cart.Add)
	auth.PUT("/cart/items/:product_id", d.Cart.SetQuantity)
	auth.DELETE("/cart/items/:product_id", d.Cart.Remove)
	auth.DELETE("/cart", d.Cart.Clear)

	auth.POST("/speech/transcribe", d.Speech.Transcribe)
	auth.POST("/media/tryon", d.Media.UploadTryOn)

	// WebSocket
	auth.GET("/ws/chat", d.WS.ChatWS)
}
