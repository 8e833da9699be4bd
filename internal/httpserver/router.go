package httpserver

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/community_shop/internal/middleware/auth"
	"github.com/Skotchmaster/community_shop/internal/middleware/csrf"
	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/internal/service"
	"github.com/Skotchmaster/community_shop/pkg/db"
	loggingmw "github.com/Skotchmaster/community_shop/pkg/middleware/logging"
	metricsmw "github.com/Skotchmaster/community_shop/pkg/middleware/metrics"
)

type Deps struct {
	DB     *gorm.DB
	Logger *slog.Logger
	Gate   *auth.Gate

	Auth     *AuthHTTP
	Users    *UserHTTP
	Catalog  *CatalogHTTP
	Cart     *CartHTTP
	Checkout *CheckoutHTTP
	Media    *MediaHTTP
	Comments *CommentHTTP

	UploadsDir string
	BodyLimit  string
	CSRF       csrf.Config
}

func Register(e *echo.Echo, d *Deps) {
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.RequestID(),
		loggingmw.RequestLogger(d.Logger),
		middleware.Recover(),
		metricsmw.Middleware(),
	)
	if d.BodyLimit != "" {
		e.Use(middleware.BodyLimit(d.BodyLimit))
	}
	csrfCfg := d.CSRF
	csrfCfg.SkipPrefixes = append(csrfCfg.SkipPrefixes, "/health", "/metrics", "/uploads")
	e.Use(csrf.Middleware(csrfCfg))

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.DB != nil {
			if err := db.Ping(c.Request().Context(), d.DB); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", metricsmw.Handler())
	if d.UploadsDir != "" {
		e.GET("/uploads/*", echo.StaticDirectoryHandler(os.DirFS(d.UploadsDir), false), uploadHeaders)
	}

	authed := d.Gate.RequireAuth

	e.GET("/register", d.Auth.RegisterForm)
	e.POST("/register", d.Auth.Register)
	e.GET("/login", d.Auth.LoginForm)
	e.POST("/login", d.Auth.Login)
	e.GET("/logout", d.Auth.LogOutForm, authed)
	e.POST("/logout", d.Auth.LogOut, authed)

	e.GET("/", d.Catalog.Storefront)
	e.GET("/shop", d.Catalog.Storefront)
	e.GET("/products/:id", d.Catalog.Product)
	e.GET("/search", d.Catalog.Search)

	cart := e.Group("/cart", authed)
	cart.GET("", d.Cart.View)
	cart.POST("/add/:id", d.Cart.Add)
	cart.POST("/remove/:id", d.Cart.Remove)

	checkout := e.Group("/checkout", authed)
	checkout.POST("", d.Checkout.Begin)
	checkout.GET("/success", d.Checkout.Success)
	checkout.GET("/cancel", d.Checkout.Cancel)
	e.GET("/orders", d.Checkout.Orders, authed)

	e.GET("/upload", d.Media.List, authed)
	e.POST("/upload", d.Media.Upload, authed)
	e.GET("/comments", d.Comments.List, authed)
	e.POST("/comments", d.Comments.Post, authed)

	admin := e.Group("/admin", d.Gate.RequireRole(models.RoleAdmin))

	admin.GET("/products", d.Catalog.AdminList)
	admin.POST("/products", d.Catalog.Create)
	admin.GET("/products/:id", d.Catalog.AdminGet)
	admin.POST("/products/:id", d.Catalog.Update)
	admin.POST("/products/:id/delete", d.Catalog.Delete)

	admin.GET("/users", d.Users.List)
	admin.POST("/users/:id", d.Users.Update)
	admin.POST("/users/:id/delete", d.Users.Delete)

	admin.GET("/orders", d.Checkout.AdminOrders)
	admin.POST("/media/:id/delete", d.Media.Delete)
	admin.POST("/comments/:id/delete", d.Comments.Delete)
}

// uploadHeaders keeps stored files from running as pages of this origin: nothing is sniffed,
// scripts are sandboxed and anything that is not an image or video is sent as a download.
func uploadHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set(echo.HeaderXContentTypeOptions, "nosniff")
		h.Set(echo.HeaderContentSecurityPolicy, "default-src 'none'; sandbox")
		if !service.IsMediaFile(c.Param("*")) {
			h.Set(echo.HeaderContentDisposition, "attachment")
		}
		return next(c)
	}
}
