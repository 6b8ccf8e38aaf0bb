package provider

import (
	"time"

	"github.com/release-unlock/internal/cache"
	"github.com/release-unlock/internal/config"
	"github.com/release-unlock/internal/logger"
	"github.com/release-unlock/internal/models"
	"github.com/release-unlock/internal/queue"
	"github.com/release-unlock/internal/repository"
	"github.com/release-unlock/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo          repository.AdminRepository
	UserRepo           repository.UserRepository
	ReleaseRepo        repository.ReleaseRepository
	ReleaseAccessRepo  repository.ReleaseAccessRepository
	PurchaseRepo       repository.PurchaseRepository
	UnlockCodeRepo     repository.UnlockCodeRepository
	CodeBatchRepo      repository.CodeBatchRepository
	RedemptionLogRepo  repository.RedemptionLogRepository
	FraudLogRepo       repository.FraudLogRepository
	RateLimitRepo      repository.RateLimitRepository
	SecurityConfigRepo repository.SecurityConfigRepository

	// Services
	AuthService           *service.AuthService
	UserAuthService       *service.UserAuthService
	CodeGenerator         *service.CodeGenerator
	CodeValidator         *service.CodeValidator
	ReleaseService        *service.ReleaseService
	CodeBatchService      *service.CodeBatchService
	RateLimiter           *service.RateLimiter
	FraudDetector         *service.FraudDetector
	SecurityConfigService *service.SecurityConfigService
	RedemptionLogService  *service.RedemptionLogService
	RedemptionService     *service.RedemptionService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.ReleaseRepo = repository.NewReleaseRepository(db)
	c.ReleaseAccessRepo = repository.NewReleaseAccessRepository(db)
	c.PurchaseRepo = repository.NewPurchaseRepository(db)
	c.UnlockCodeRepo = repository.NewUnlockCodeRepository(db)
	c.CodeBatchRepo = repository.NewCodeBatchRepository(db)
	c.RedemptionLogRepo = repository.NewRedemptionLogRepository(db)
	c.FraudLogRepo = repository.NewFraudLogRepository(db)
	c.RateLimitRepo = repository.NewRateLimitRepository(db)
	c.SecurityConfigRepo = repository.NewSecurityConfigRepository(db)
}

func (c *Container) initServices() {
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.CodeGenerator = service.NewCodeGenerator()
	c.CodeValidator = service.NewCodeValidator(c.UnlockCodeRepo, c.ReleaseAccessRepo)
	c.ReleaseService = service.NewReleaseService(c.ReleaseRepo)
	c.CodeBatchService = service.NewCodeBatchService(c.UnlockCodeRepo, c.CodeBatchRepo, c.ReleaseRepo, c.CodeGenerator)

	// 限流计数优先走 Redis，未启用缓存时退化为数据库计数
	var counterStore service.AttemptCounterStore
	if cache.Enabled() {
		counterStore = cache.NewRedisCounterStore(cache.Client())
	} else {
		counterStore = service.NewDatabaseCounterStore(c.RateLimitRepo)
	}
	rateCfg := c.Config.Security.RedeemRateLimit
	c.RateLimiter = service.NewRateLimiter(counterStore, service.RateLimiterOptions{
		MaxAttempts:   rateCfg.MaxAttempts,
		Window:        time.Duration(rateCfg.WindowSeconds) * time.Second,
		BlockDuration: time.Duration(rateCfg.BlockSeconds) * time.Second,
	})

	fraudCfg := c.Config.Security.Fraud
	c.FraudDetector = service.NewFraudDetector(c.FraudLogRepo, c.RedemptionLogRepo, service.FraudDetectorOptions{
		EnumerationThreshold: fraudCfg.EnumerationThreshold,
		TargetingThreshold:   fraudCfg.TargetingThreshold,
		Window:               time.Duration(fraudCfg.WindowSeconds) * time.Second,
	})

	c.SecurityConfigService = service.NewSecurityConfigService(c.SecurityConfigRepo, service.SecurityDefaults{
		DeviceLockEnabled:     c.Config.Security.Locks.DeviceLockEnabled,
		IPLockEnabled:         c.Config.Security.Locks.IPLockEnabled,
		FraudDetectionEnabled: fraudCfg.Enabled,
	})
	if err := c.SecurityConfigService.EnsureSeeded(); err != nil {
		logger.Warnw("provider_seed_security_config_failed", "error", err)
	}

	c.RedemptionLogService = service.NewRedemptionLogService(c.RedemptionLogRepo)
	c.RedemptionService = service.NewRedemptionService(
		c.UnlockCodeRepo,
		c.ReleaseAccessRepo,
		c.PurchaseRepo,
		c.CodeValidator,
		c.RateLimiter,
		c.FraudDetector,
		c.SecurityConfigService,
		c.RedemptionLogService,
	)

	// 队列可用时欺诈观察改为异步入队，失败自动回退同步执行
	if c.QueueClient != nil && c.QueueClient.Enabled() {
		c.RedemptionService.SetFraudObserver(queue.NewAsyncFraudObserver(c.QueueClient, c.FraudDetector))
	}
}
