package main

import (
	"log"
	"time"

	"educhain/config"
	courseControllers "educhain/controllers/course"
	"educhain/database"
	"educhain/ledger"
	"educhain/progress"
	authRoutes "educhain/routers/authRoutes"
	courseRoutes "educhain/routers/courseRoutes"
	"educhain/settlement"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	// Ledger client is optional: without a key the platform runs
	// local-only and the sweep picks completions up once configured
	var ledgerClient settlement.Ledger
	client, err := ledger.NewClient(
		config.AppConfig.ChainRPCURL,
		config.AppConfig.ContractAddress,
		config.AppConfig.LedgerPrivateKey,
		config.AppConfig.ChainID,
	)
	if err != nil {
		log.Printf("Ledger client disabled: %v", err)
	} else {
		ledgerClient = client
	}

	waitTimeout := time.Duration(config.AppConfig.LedgerWaitSeconds) * time.Second
	coordinator := settlement.NewCoordinator(database.Database.Db, ledgerClient, waitTimeout)
	tracker := progress.NewTracker(database.Database.Db, coordinator)
	courseControllers.Init(tracker, coordinator)

	// Periodic reconciliation of completed-but-unsynced enrollments
	coordinator.StartReconciliationScheduler()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	authRoutes.SetupAuthRoutes(app)
	courseRoutes.SetupCourseRoutes(app)

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
