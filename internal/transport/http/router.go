package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	authhdl "github.com/stepline/dance_catalog/internal/handlers/auth"
	"github.com/stepline/dance_catalog/internal/handlers/favorites"
	"github.com/stepline/dance_catalog/internal/handlers/lists"
	"github.com/stepline/dance_catalog/internal/handlers/moves"
	"github.com/stepline/dance_catalog/internal/handlers/searchhdl"
	"github.com/stepline/dance_catalog/internal/httperr"
	"github.com/stepline/dance_catalog/internal/logging"
	mwauth "github.com/stepline/dance_catalog/internal/middleware/auth"
	loggingmw "github.com/stepline/dance_catalog/internal/middleware/logging"
	"github.com/stepline/dance_catalog/internal/models"
)

type Deps struct {
	Auth      *mwauth.Middleware
	AuthHdl   *authhdl.Handler
	Lists     *lists.Handler
	Favorites *favorites.Handler
	Moves     *moves.Handler
	Search    *searchhdl.Handler

	Logger *slog.Logger

	CORSOrigin string
	// DevMode exposes internal error detail; it tracks the wildcard-CORS flag.
	DevMode bool
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = errorHandler(d.DevMode)

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	if d.Logger != nil {
		e.Use(loggingmw.RequestLogger(d.Logger))
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{d.CORSOrigin},
		AllowCredentials: d.CORSOrigin != "*",
	}))

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/auth")
	auth.POST("/register", d.AuthHdl.Register)
	auth.POST("/login", d.AuthHdl.Login)
	auth.POST("/refresh", d.AuthHdl.Refresh)
	auth.POST("/logout", d.AuthHdl.Logout)
	auth.GET("/me", d.AuthHdl.Me)

	api := e.Group("/api")

	mv := api.Group("/moves")
	mv.GET("", d.Moves.Index, d.Auth.OptionalAuth)
	mv.GET("/:id", d.Moves.Get, d.Auth.OptionalAuth)
	mv.POST("", d.Moves.Create, d.Auth.RequireAuth, d.Auth.RequireRole(models.RoleTeacher))
	mv.PUT("/:id", d.Moves.Update, d.Auth.RequireAuth, d.Auth.RequireRole(models.RoleTeacher))
	mv.DELETE("/:id", d.Moves.Delete, d.Auth.RequireAuth, d.Auth.RequireRole(models.RoleTeacher))

	api.GET("/search", d.Search.Search, d.Auth.OptionalAuth)

	ls := api.Group("/lists")
	ls.GET("/shared/:token", d.Lists.GetShared)
	ls.POST("", d.Lists.Create, d.Auth.RequireAuth)
	ls.GET("", d.Lists.Index, d.Auth.RequireAuth)
	ls.GET("/:id", d.Lists.Get, d.Auth.OptionalAuth)
	ls.PUT("/:id", d.Lists.Update, d.Auth.RequireAuth)
	ls.DELETE("/:id", d.Lists.Delete, d.Auth.RequireAuth)
	ls.POST("/:id/moves", d.Lists.AddMove, d.Auth.RequireAuth)
	ls.POST("/:id/moves/batch", d.Lists.AddMovesBatch, d.Auth.RequireAuth)
	ls.DELETE("/:id/moves/:moveId", d.Lists.RemoveMove, d.Auth.RequireAuth)
	ls.POST("/:id/members", d.Lists.AddMember, d.Auth.RequireAuth)
	ls.DELETE("/:id/members/:userId", d.Lists.RemoveMember, d.Auth.RequireAuth)

	fv := api.Group("/favorites", d.Auth.RequireAuth)
	fv.GET("", d.Favorites.Index)
	fv.POST("", d.Favorites.Add)
	fv.DELETE("/:moveId", d.Favorites.Remove)
}

// errorHandler renders the httperr taxonomy. Internal detail is withheld in
// production deployments and exposed in permissive-CORS (development) ones.
func errorHandler(devMode bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := echo.Map{"error": "internal server error"}

		if e, ok := httperr.From(err); ok {
			status = e.Status
			body = echo.Map{"error": e.Message}
			if e.Code != "" {
				body["code"] = e.Code
			}
			if len(e.Issues) > 0 {
				body["issues"] = e.Issues
			}
			if status == http.StatusInternalServerError {
				logging.FromContext(c.Request().Context()).Error("internal error", "error", e.Error())
				if devMode {
					body["error"] = e.Error()
				} else {
					body["error"] = "internal server error"
				}
			}
		} else if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			body = echo.Map{"error": http.StatusText(status)}
			if msg, ok := he.Message.(string); ok {
				body["error"] = msg
			}
		} else {
			logging.FromContext(c.Request().Context()).Error("unhandled error", "error", err)
			if devMode {
				body["error"] = err.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}
