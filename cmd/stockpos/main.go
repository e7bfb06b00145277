package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"

	"stockpos/internal/config"
	"stockpos/internal/http/handlers"
	"stockpos/internal/lock"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
	"stockpos/internal/services"
)

func main() {
	cfg := config.Load()
	applog.SetLevel(cfg.LogLevel)

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
			applog.SetOutput(mw)
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	store := repos.NewStore(db)

	var locks lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis %s: %v", cfg.RedisAddr, err)
		}
		cancel()
		defer rdb.Close()
		locks = lock.NewRedis(rdb, 30*time.Second)
		log.Printf("[lock] using redis at %s", cfg.RedisAddr)
	}

	svc := handlers.NewServices(store, cfg, locks)
	ctx := context.Background()
	if err := services.EnsureOperator(ctx, store, cfg.OperatorUsername, cfg.OperatorPassword); err != nil {
		log.Fatal(err)
	}
	if cfg.SeedDemo {
		if err := services.SeedDemo(ctx, store, svc.Admin, svc.Catalog); err != nil {
			log.Fatal(err)
		}
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    cfg.BodyLimit,
		AppName:      "stockpos",
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Device-Serial, X-App-Version",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:          300,
		Expiration:   time.Minute,
		LimitReached: handlers.LimitReached,
	}))
	authLimit := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 5 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|auth"
		},
		LimitReached: handlers.LimitReached,
	})

	handlers.Mount(app, handlers.NewDeps(svc, cfg), authLimit)

	go purgeRevoked(svc.Auth)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		applog.Op("server.shutdown", nil)
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	applog.Op("server.start", map[string]any{"port": cfg.Port})
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

// purgeRevoked drops expired token revocations once an hour.
func purgeRevoked(auth *services.AuthService) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for range t.C {
		n, err := auth.PurgeRevoked(context.Background())
		if err != nil {
			applog.OpError("auth.revocations.purge", err, nil)
			continue
		}
		if n > 0 {
			applog.Op("auth.revocations.purge", map[string]any{"removed": n})
		}
	}
}
