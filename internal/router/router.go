package router

import (
	"fmt"
	"strings"

	"github.com/release-unlock/internal/cache"
	"github.com/release-unlock/internal/config"
	adminhandlers "github.com/release-unlock/internal/http/handlers/admin"
	publichandlers "github.com/release-unlock/internal/http/handlers/public"
	"github.com/release-unlock/internal/logger"
	"github.com/release-unlock/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ru"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录过于频繁，请 %d 秒后重试",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录过于频繁，请 %d 秒后重试",
	}
	// 兑换入口的外围 IP 限流，细粒度限流在兑换引擎内执行
	redeemRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:redeem_ip", redisPrefix),
		WindowSeconds: cfg.Security.RedeemRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RedeemRateLimit.MaxAttempts * 4,
		Message:       "请求过于频繁，请 %d 秒后重试",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetCurrentUser)
			user.PUT("/me/password", publicHandler.ChangeUserPassword)
			user.GET("/me/releases", publicHandler.GetMyReleases)
			user.POST("/unlock/validate", RateLimitMiddleware(redisClient, redeemRule, KeyByIP), publicHandler.ValidateUnlockCode)
			user.POST("/unlock/redeem", RateLimitMiddleware(redisClient, redeemRule, KeyByIP), publicHandler.RedeemUnlockCode)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 发行内容管理
				authorized.GET("/releases", adminHandler.GetAdminReleases)
				authorized.POST("/releases", adminHandler.CreateRelease)
				authorized.PUT("/releases/:id", adminHandler.UpdateRelease)

				// 兑换码管理
				authorized.POST("/code-batches", adminHandler.GenerateCodeBatch)
				authorized.GET("/code-batches", adminHandler.GetCodeBatches)
				authorized.GET("/code-batches/:id/export", adminHandler.ExportCodeBatch)
				authorized.GET("/codes", adminHandler.GetAdminCodes)
				authorized.POST("/codes/:id/invalidate", adminHandler.InvalidateCode)
				authorized.POST("/codes/:id/restore", adminHandler.RestoreCode)

				// 审计与风控
				authorized.GET("/redemption-logs", adminHandler.GetRedemptionLogs)
				authorized.GET("/fraud-logs", adminHandler.GetFraudLogs)
				authorized.POST("/fraud-logs/:id/resolve", adminHandler.ResolveFraudLog)
				authorized.GET("/security-config", adminHandler.GetSecurityConfig)
				authorized.PUT("/security-config", adminHandler.UpdateSecurityConfig)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
