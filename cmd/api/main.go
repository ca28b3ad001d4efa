package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"hazyna.org/internal/cache"
	"hazyna.org/internal/config"
	"hazyna.org/internal/directory"
	"hazyna.org/internal/httpapi"
	"hazyna.org/internal/keystore"
	"hazyna.org/internal/obs"
	"hazyna.org/internal/refresh"
	"hazyna.org/internal/region"
	"hazyna.org/internal/session"
	"hazyna.org/internal/tenant"
	"hazyna.org/internal/token"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	cfg := config.Load()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	db, err := sql.Open("pgx", cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	store := buildCache(cfg)

	keys, err := keystore.NewFSStore(cfg.KeysDir)
	if err != nil {
		log.Fatalf("keystore: %v", err)
	}
	// Provision the current period's keypair before serving.
	if _, err := keys.EnsurePeriodKey(context.Background(), keystore.CurrentPeriod(time.Now())); err != nil {
		log.Fatalf("keystore: ensure current period: %v", err)
	}
	keySet := keystore.NewSetBuilder(keys, keystore.WithSetTTL(cfg.KeySetTTL))

	regionOpts := []region.ResolverOption{region.WithResolveTTL(cfg.RegionTTL)}
	if cfg.RecursiveResolver {
		regionOpts = append(regionOpts, region.WithStoreTraversal())
	}
	regions := region.NewResolver(region.NewPGStore(db), store, regionOpts...)
	tenants := tenant.NewResolver(regions, tenant.NewPGStore(db), store, tenant.WithResolveTTL(cfg.TenantTTL))

	issuer := token.NewIssuer(keys, tenants, cfg.Issuer, token.WithAccessTTL(cfg.AccessTTL))
	verifier := token.NewVerifier(keySet, cfg.Issuer)

	refreshMgr := refresh.NewManager(refresh.NewPGStore(db),
		refresh.WithTTL(cfg.RefreshTTL), refresh.WithWindow(cfg.RefreshWindow))

	sessions := session.NewService(directory.NewPGStore(db), issuer, refreshMgr)

	api := httpapi.New(sessions, verifier, keySet, cfg.Audience,
		httpapi.ReadyProbe{DB: db}, version,
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting hazyna-auth %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}

// buildCache prefers Redis so invalidations reach every replica; a missing
// or unreachable Redis degrades to the in-process cache.
func buildCache(cfg config.Config) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewMemory()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unreachable, using in-process cache: %v", err)
		return cache.NewMemory()
	}
	return cache.NewRedis(client, "hazyna")
}
