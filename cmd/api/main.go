package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/training-api/internal/config"
	"github.com/yourusername/training-api/internal/handler"
	"github.com/yourusername/training-api/internal/middleware"
	pgRepo "github.com/yourusername/training-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/training-api/internal/repository/redis"
	"github.com/yourusername/training-api/internal/service"
	"github.com/yourusername/training-api/internal/service/attemptsession"
	"github.com/yourusername/training-api/pkg/auth"
	"github.com/yourusername/training-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	assessmentRepo := pgRepo.NewAssessmentRepo(db)
	linkRepo := pgRepo.NewAccessLinkRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)
	certificateRepo := pgRepo.NewCertificateRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Инициализируем сервис токенов ссылок доступа
	linkTokens, err := auth.NewLinkTokenService(cfg.LinkToken.Secret, cfg.LinkToken.DefaultTTLHours)
	if err != nil {
		log.Printf("Failed to initialize LinkTokenService: %v", err)
		os.Exit(1)
	}

	// Инициализируем отправку писем: без API-ключа письма просто не уходят
	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.Email.Enabled {
		resendService, err := service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize ResendEmailService: %v", err)
			os.Exit(1)
		}
		emailService = resendService
		log.Println("Отправка писем через Resend включена")
	} else {
		log.Println("Отправка писем отключена")
	}

	// Инициализируем сервисы
	attemptService := service.NewAttemptService(linkRepo, attemptRepo, certificateRepo, cacheRepo, emailService)
	assessmentService := service.NewAssessmentService(assessmentRepo, linkRepo, attemptRepo)

	sessionConfig := attemptsession.DefaultConfig()
	if cfg.Session.TickIntervalSec > 0 {
		sessionConfig.TickInterval = time.Duration(cfg.Session.TickIntervalSec) * time.Second
	}
	sessionManager := service.NewSessionManager(attemptService, cacheRepo, sessionConfig)

	// Список разрешенных origin для CORS и WebSocket
	allowedOrigins := cfg.Server.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	// Инициализируем обработчики
	attemptHandler := handler.NewAttemptHandler(attemptService)
	assessmentHandler := handler.NewAssessmentHandler(assessmentService, linkTokens)
	sessionWSHandler := handler.NewSessionWSHandler(sessionManager, linkTokens, allowedOrigins)

	// Инициализируем middleware
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		// Production: не доверять прокси-заголовкам
		// Если используете load balancer, замените nil на []string{"IP_БАЛАНСИРОВЩИКА"}
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		// Development: доверяем localhost
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Прохождение аттестации по токену ссылки
		session := api.Group("/session")
		session.Use(middleware.ExtractLinkToken(linkTokens))
		{
			// Проверка ссылки лимитируется строже: токен прилетает извне
			session.GET("/link", rateLimiter.Limit(middleware.StrictLinkRateLimitConfig()), attemptHandler.CheckLink)

			limited := session.Group("")
			limited.Use(rateLimiter.LimitByIP(middleware.DefaultSessionRateLimitConfig()))
			{
				limited.POST("/attempt", attemptHandler.StartAttempt)
				limited.PUT("/attempt/answers", attemptHandler.SaveAnswers)
				limited.POST("/attempt/submit", attemptHandler.SubmitAttempt)
				limited.GET("/certificate", attemptHandler.GetCertificate)
			}
		}

		// Административные маршруты
		admin := api.Group("/admin")
		admin.Use(middleware.RequireAdminKey(cfg.Admin.APIKey))
		{
			assessments := admin.Group("/assessments")
			{
				assessments.POST("", assessmentHandler.CreateAssessment)
				assessments.GET("", assessmentHandler.ListAssessments)

				withID := assessments.Group("/:id")
				withID.Use(middleware.ExtractUUIDParam("id", "assessmentID"))
				{
					withID.GET("", assessmentHandler.GetAssessment)
					withID.DELETE("", assessmentHandler.DeleteAssessment)
					withID.POST("/links", assessmentHandler.CreateAccessLink)
					withID.GET("/links", assessmentHandler.ListAccessLinks)
					withID.GET("/results/export", assessmentHandler.ExportResults)
				}
			}

			links := admin.Group("/links/:link_id")
			links.Use(middleware.ExtractUUIDParam("link_id", "accessLinkID"))
			{
				links.DELETE("", assessmentHandler.RevokeAccessLink)
			}
		}
	}

	// WebSocket маршрут живой сессии прохождения
	router.GET("/ws/session", sessionWSHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// После получения сигнала SIGINT или SIGTERM начинаем graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Закрываем активные сессии прохождения и снимаем их блокировки
	sessionManager.Shutdown()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
