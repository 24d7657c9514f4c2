package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"surf-leaderboard/config"
	"surf-leaderboard/handlers"
	"surf-leaderboard/middleware"
	"surf-leaderboard/models"
	"surf-leaderboard/services"
	"surf-leaderboard/session"
	"surf-leaderboard/utils"
	"surf-leaderboard/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 8 * 1024 * 1024, // avatars are capped well below this
	})

	allowedOriginsList := strings.Split(cfg.AllowedOrigins, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Cache-Control",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	if err := utils.InitR2(cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret, cfg.R2Bucket); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		// Rank entries get deleted while activity rows keep their rank id,
		// so rank_entries cannot carry an enforced foreign key.
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(5)
	}

	if err := db.AutoMigrate(
		&models.Section{},
		&models.User{},
		&models.Run{},
		&models.RankEntry{},
		&models.Activity{},
		&models.DiscordLink{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	sessions, err := session.NewStore(cfg.RedisURL)
	if err != nil {
		log.Fatal("failed to connect to redis:", err)
	}

	notifier := &services.PgNotifier{DB: db}

	sectionService := services.NewSectionService(db)
	if err := sectionService.Seed(); err != nil {
		log.Fatal("failed to seed section catalogue:", err)
	}

	rankingService := services.NewRankingService(db, notifier)
	runService := services.NewRunService(db, notifier)
	runService.Ranking = rankingService
	activityService := services.NewActivityService(db)
	userService := services.NewUserService(db, cfg.SiteRoot)
	videoClient := services.NewYoutubeClient(cfg.YoutubeBaseURL, cfg.YoutubeAPIKey)
	submitService := services.NewSubmitService(sectionService, videoClient, runService)
	discordService := services.NewDiscordService(db,
		cfg.DiscordClientID, cfg.DiscordClientSecret,
		cfg.DiscordAuthURL, cfg.DiscordTokenURL, cfg.DiscordRedirectURL,
		cfg.DiscordAPIBase, cfg.DiscordAppID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridge := workers.NewNotifyWorker(cfg.DSN(), db, discordService,
		cfg.WebhookPB, cfg.WebhookWR, cfg.WebhookActivity)
	bridge.Start(ctx)

	rankingService.StartRankingSweeper(ctx)

	app.Use(middleware.SessionMiddleware(sessions, db))

	handlers.SetupRunRoutes(app, runService, submitService, sectionService)
	handlers.SetupRankingRoutes(app, rankingService, db)
	handlers.SetupActivityRoutes(app, activityService)
	handlers.SetupUserRoutes(app, userService, sessions)
	handlers.SetupDiscordRoutes(app, discordService, sessions)

	app.Static("/cdn", filepath.Join(cfg.SiteRoot, "cdn"))

	go func() {
		if err := app.Listen(cfg.Addr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on %s", cfg.Addr)
	log.Println("✅ Notification bridge running (submit + activity)")
	log.Println("✅ Hourly ranking sweeper running")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
