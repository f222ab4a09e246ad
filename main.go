package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tastetrail-rewards-system/handlers"
	"tastetrail-rewards-system/middleware"
	"tastetrail-rewards-system/models"
	"tastetrail-rewards-system/services"
	"tastetrail-rewards-system/utils"
	"tastetrail-rewards-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // badge icons only, 10MB is plenty
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, Idempotency-Key",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.UserProfile{},
		&models.RestaurantStamp{},
		&models.XpEvent{},
		&models.Badge{},
		&models.UserBadge{},
		&models.Quest{},
		&models.UserQuest{},
		&models.DailyDrop{},
		&models.DailyDropClaim{},
		&models.Trail{},
		&models.TrailStep{},
		&models.TrailStepCompletion{},
		&models.TrailCompletion{},
		&models.ReferralCode{},
		&models.ReferralClaim{},
		&models.IdempotencyKey{},
		&models.City{},
		&models.Restaurant{},
		&models.RestaurantTag{},
		&models.Video{},
		&models.VideoLike{},
		&models.DinerUser{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	xpService := services.NewXPService(db)
	stampService := services.NewStampService(db)
	idemService := services.NewIdempotencyService(db)
	badgeService := services.NewBadgeService(db, stampService)
	questService := services.NewQuestService(db, xpService)
	dropService := services.NewDropService(db, idemService, stampService, xpService, badgeService, questService)
	checkinService := services.NewCheckinService(db, stampService, xpService, badgeService, questService)
	trailService := services.NewTrailService(db, idemService, stampService, xpService, badgeService, questService)
	videoService := services.NewVideoService(db, idemService, xpService, questService)
	referralService := services.NewReferralService(db, xpService)
	catalogService := services.NewCatalogService(db)

	if err := catalogService.SeedBadges(); err != nil {
		log.Fatal("failed to seed badge catalog:", err)
	}

	// --- CONFIGURE Sync Details for Diner Profiles ---
	profileServiceURL := os.Getenv("PROFILE_SERVICE_URL")
	if profileServiceURL == "" {
		log.Fatal("PROFILE_SERVICE_URL environment variable not set")
	}
	rewardsServiceToken := os.Getenv("REWARDS_SERVICE_TOKEN")
	if rewardsServiceToken == "" {
		log.Fatal("REWARDS_SERVICE_TOKEN environment variable not set")
	}
	// --- END CONFIG ---

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := workers.NewDinerSyncWorker(db, profileServiceURL, "/api/v1/public/profiles", rewardsServiceToken)
	syncWorker.Start(ctx)

	catalogService.StartDropScheduler()

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupRewardRoutes(app, handlers.RewardServices{
		Drops:     dropService,
		Checkins:  checkinService,
		Trails:    trailService,
		Videos:    videoService,
		Referrals: referralService,
		XP:        xpService,
		Badges:    badgeService,
		Quests:    questService,
	})
	handlers.SetupCatalogRoutes(app, catalogService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Diner Sync Worker running")
	log.Println("✅ Drop publish scheduler running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
