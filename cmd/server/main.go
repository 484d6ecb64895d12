package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postgate/configs"
	"github.com/maheshrc27/postgate/internal/api/handlers"
	"github.com/maheshrc27/postgate/internal/api/middleware"
	"github.com/maheshrc27/postgate/internal/db"
	job "github.com/maheshrc27/postgate/internal/jobs"
	"github.com/maheshrc27/postgate/internal/platform"
	"github.com/maheshrc27/postgate/internal/queue"
	"github.com/maheshrc27/postgate/internal/repository"
	"github.com/maheshrc27/postgate/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	database, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(database)

	if err := database.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisConn, err := redisConnOpt(cfg.RedisURI)
	if err != nil {
		log.Fatalf("Invalid REDIS_URI: %v", err)
	}
	scheduler := queue.NewAsynqScheduler(redisConn)
	defer scheduler.Close()

	r2Service, err := service.NewR2Service(context.Background(), cfg.R2)
	if err != nil {
		log.Fatalf("Failed to configure image storage: %v", err)
	}

	httpClient := &http.Client{Timeout: cfg.Meta.HTTPTimeout}
	pages := platform.NewPageTokenResolver(httpClient, cfg.Meta.GraphBaseURL)
	platforms := platform.NewRegistry(
		platform.NewFacebookClient(httpClient, cfg.Meta.GraphBaseURL, pages, cfg.Meta.FacebookPublishWithPageToken),
		platform.NewInstagramClient(httpClient, cfg.Meta.GraphBaseURL, pages),
	)

	businessRepo := repository.NewBusinessRepository(database)
	accountRepo := repository.NewSocialAccountRepository(database)
	categoryRepo := repository.NewCategoryRepository(database)
	postRepo := repository.NewPostRepository(database)
	historyRepo := repository.NewPostingHistoryRepository(database)

	tokenService := service.NewTokenService(cfg.SecretKey)
	postService := service.NewPostService(service.PostDeps{
		Businesses: businessRepo,
		Accounts:   accountRepo,
		Categories: categoryRepo,
		Posts:      postRepo,
		History:    historyRepo,
		Platforms:  platforms,
		Scheduler:  scheduler,
		Images:     service.NewImageNormalizer(),
		Storage:    r2Service,
		Tokens:     tokenService,
	}, cfg.Publish)
	commentService := service.NewCommentService(businessRepo, accountRepo, postRepo, platforms, tokenService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    20 * 1024 * 1024, // 20 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	prom := fiberprometheus.New("postgate")
	prom.RegisterAt(app, "/metrics")

	app.Use(recover.New())
	app.Use(prom.Middleware)
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService, commentService)
	api.Post("/posts", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/:id", post.GetPost)
	api.Patch("/posts/:id", post.EditPost)
	api.Delete("/posts/:id", post.DeletePost)
	api.Get("/posts/:id/comments", post.ListComments)
	api.Get("/posts/:id/history", post.PostingHistory)
	api.Get("/categories", post.ListCategories)

	comment := handlers.NewCommentHandler(commentService)
	api.Post("/comments/:id/like", comment.ToggleLike)
	api.Post("/comments/:id/reply", comment.Reply)

	// cron jobs
	reconcileJob := job.NewReconcileJob(postService, cfg.ReconcileGrace)

	c := cron.New()
	if err := c.AddFunc(fmt.Sprintf("@every %s", cfg.ReconcileInterval), reconcileJob.Run); err != nil {
		log.Fatalf("Invalid reconcile interval: %v", err)
	}
	c.Start()
	defer c.Stop()

	// queue
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
	})
	mux := asynq.NewServeMux()
	queue.NewWorker(postService).Register(mux)

	go func() {
		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ListenAddr)

	gracefulShutdown(app, server)
}

// redisConnOpt accepts a redis:// URI or a bare host:port.
func redisConnOpt(uri string) (asynq.RedisConnOpt, error) {
	if strings.Contains(uri, "://") {
		return asynq.ParseRedisURI(uri)
	}
	return asynq.RedisClientOpt{Addr: uri}, nil
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}
	server.Shutdown()

	log.Println("Server shutdown complete.")
}
