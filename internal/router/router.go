package router

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/LevyDecisionNeuroLab/risk-survey/internal/config"
	"github.com/LevyDecisionNeuroLab/risk-survey/internal/handlers"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}
func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(429, "Too many requests. Try again later.")
}

func Setup(log *zap.Logger) *gin.Engine {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	// The study client is served from a different origin than the data
	// service, so the save endpoints need CORS.
	router.Use(cors.New(cors.Config{
		AllowOrigins:     config.Conf.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	store := cookie.NewStore([]byte(config.Conf.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   false, // Set to true in production
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400,
	})
	router.Use(sessions.Sessions("risksurvey", store))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
	})

	// Handlers and routes
	saveHandler := handlers.NewSaveHandler(log)
	exportHandler := handlers.NewExportHandler(log)

	// Password attempts on the download gates are rate limited per IP.
	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 5,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	router.GET("/health", saveHandler.Health)
	router.GET("/config.json", saveHandler.StudyConfig)
	router.POST("/save", saveHandler.SaveTrials)
	router.POST("/save-attention", saveHandler.SaveAttention)
	router.POST("/save-bonus", saveHandler.SaveBonus)

	downloads := router.Group("/download")
	{
		downloads.GET("/:slug", exportHandler.ShowGate)
		downloads.POST("/:slug/unlock", limiter, exportHandler.Unlock)
		downloads.GET("/:slug/file", exportHandler.Download)
	}

	return router
}
