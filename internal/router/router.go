package router

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/medilog/internal/handler"
)

const (
	sessionName          = "medilog_session"
	defaultSessionSecret = "medilog-dev-secret"
	sessionMaxAge        = 30 * 24 * 60 * 60
)

// Options 控制会话 Cookie 的行为
type Options struct {
	SessionSecret string
	SecureCookie  bool
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(handler.Recovery(), handler.RequestID(), handler.Metrics(api.Metrics()), handler.RequestLogger())

	secret := strings.TrimSpace(opts.SessionSecret)
	if secret == "" {
		secret = defaultSessionSecret
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store), api.LocaleMiddleware())

	r.GET("/ping", api.HealthCheck)
	if collector := api.Metrics(); collector != nil {
		r.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	apiGroup := r.Group("/api")
	{
		auth := apiGroup.Group("/auth")
		{
			auth.POST("/signup", api.Signup)
			auth.POST("/login", api.Login)
			auth.POST("/logout", api.Logout)
			auth.GET("/me", handler.AuthRequired(), api.Me)
		}

		// 参考资料可匿名浏览
		apiGroup.GET("/reference/search", api.SearchReferences)
		apiGroup.GET("/reference/:type/:id", api.GetReference)

		// 需要认证的路由
		protected := apiGroup.Group("")
		protected.Use(handler.AuthRequired())
		{
			protected.GET("/medications", api.ListMedications)
			protected.POST("/medications", api.CreateMedication)
			protected.GET("/medications/:id", api.GetMedication)
			protected.PUT("/medications/:id", api.UpdateMedication)
			protected.DELETE("/medications/:id", api.DeleteMedication)

			protected.GET("/doses/today", api.TodayDoses)
			protected.POST("/doses/toggle", api.ToggleDose)
			protected.GET("/stats/weekly", api.WeeklyStats)

			protected.GET("/history/recent", api.RecentHistory)
			protected.GET("/history/calendar", api.CalendarHistory)
			protected.GET("/history/day", api.DayHistory)

			protected.POST("/reference/:type/:id/explanation", api.ExplainReference)
			protected.POST("/reference/:type/:id/chat", api.ChatReference)

			protected.GET("/saved", api.ListSaved)
			protected.POST("/saved/toggle", api.ToggleSaved)
			protected.DELETE("/saved/:id", api.RemoveSaved)
		}

		// AI 设置影响所有用户，仅管理员可用
		admin := protected.Group("/settings")
		admin.Use(api.AdminRequired())
		{
			admin.GET("/ai", api.GetAISettings)
			admin.PUT("/ai", api.UpdateAISettings)
			admin.POST("/ai/test", api.TestAIConnection)
		}
	}

	return r
}
