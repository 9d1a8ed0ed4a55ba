package handlers

import (
	"net/http"
	"os"
	"strconv"

	"storefront-backend/internal/auth"
	"storefront-backend/internal/cart"
	"storefront-backend/internal/categories"
	"storefront-backend/internal/orders"
	"storefront-backend/internal/products"
	"storefront-backend/internal/profiles"
	"storefront-backend/internal/stores/kafka"
	"storefront-backend/internal/users"
	"storefront-backend/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	c        cart.Conf
	o        orders.Conf
	p        products.Conf
	cat      categories.Conf
	pr       profiles.Conf
	u        *users.Conf
	k        *kafka.Conf // nil when event publishing is disabled
	keys     *auth.Keys
	validate *validator.Validate
}

func NewHandler(c cart.Conf, o orders.Conf, p products.Conf, cat categories.Conf,
	pr profiles.Conf, u *users.Conf, k *kafka.Conf, keys *auth.Keys) *Handler {
	return &Handler{
		c:        c,
		o:        o,
		p:        p,
		cat:      cat,
		pr:       pr,
		u:        u,
		k:        k,
		keys:     keys,
		validate: validator.New(),
	}
}

// API builds the router with all storefront endpoints.
func API(endpointPrefix string, keys *auth.Keys, c cart.Conf, o orders.Conf,
	p products.Conf, cat categories.Conf, pr profiles.Conf, u *users.Conf, k *kafka.Conf) *gin.Engine {

	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	m, err := middleware.NewMid(keys)
	if err != nil {
		panic(err)
	}
	h := NewHandler(c, o, p, cat, pr, u, k, keys)

	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", healthCheck)

	v1 := r.Group(endpointPrefix)
	{
		v1.POST("/users/signup", h.Signup)
		v1.POST("/users/login", h.Login)

		v1.GET("/categories", h.ListCategories)
		v1.GET("/categories/:id", h.GetCategory)
		v1.GET("/categories/:id/products", h.GetProductsByCategory)
		v1.GET("/products", h.SearchProducts)
		v1.GET("/products/:id", h.GetProduct)

		authed := v1.Group("")
		authed.Use(m.Authentication())
		{
			authed.POST("/categories", m.Authorize(h.AddCategory, auth.RoleAdmin))
			authed.PUT("/categories/:id", m.Authorize(h.UpdateCategory, auth.RoleAdmin))
			authed.DELETE("/categories/:id", m.Authorize(h.DeleteCategory, auth.RoleAdmin))

			authed.POST("/products", m.Authorize(h.AddProduct, auth.RoleAdmin))
			authed.PUT("/products/:id", m.Authorize(h.UpdateProduct, auth.RoleAdmin))
			authed.DELETE("/products/:id", m.Authorize(h.DeleteProduct, auth.RoleAdmin))

			authed.GET("/cart", m.Authorize(h.GetCart, auth.RoleUser))
			authed.POST("/cart/products/:productID", m.Authorize(h.AddProductToCart, auth.RoleUser))
			authed.PUT("/cart/products/:productID", m.Authorize(h.UpdateProductInCart, auth.RoleUser))
			authed.DELETE("/cart", m.Authorize(h.ClearCart, auth.RoleUser))

			authed.POST("/orders", m.Authorize(h.Checkout, auth.RoleUser))

			authed.GET("/profile", m.Authorize(h.GetProfile, auth.RoleUser))
			authed.PUT("/profile", m.Authorize(h.UpdateProfile, auth.RoleUser))
		}
	}

	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// userIDFromRequest resolves the authenticated user id from the claims the
// auth middleware stored. ok is false when the claims are missing or carry a
// non-numeric subject.
func userIDFromRequest(c *gin.Context) (int64, bool) {
	claims, found := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !found {
		return 0, false
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}
