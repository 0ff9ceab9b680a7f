package main

import (
	"context"
	"flag"
	"log"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"carbon-registry/registry-backend/internal/archive"
	"carbon-registry/registry-backend/internal/auth"
	"carbon-registry/registry-backend/internal/certificates"
	"carbon-registry/registry-backend/internal/config"
	"carbon-registry/registry-backend/internal/events"
	"carbon-registry/registry-backend/internal/events/stream"
	"carbon-registry/registry-backend/internal/ledger"
	"carbon-registry/registry-backend/internal/marketplace"
	"carbon-registry/registry-backend/internal/orchestrator"
	"carbon-registry/registry-backend/internal/registry"
	"carbon-registry/registry-backend/internal/reports"
	"carbon-registry/registry-backend/internal/roles"
	"carbon-registry/registry-backend/pkg/funds"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	configPath := flag.String("config", "config.json", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	roleSet := roles.NewSet(cfg.Registry.Owner)
	eventLog := events.NewLog()

	ledgerService := ledger.NewService(roleSet, eventLog)
	registryService := registry.NewService(roleSet, eventLog)
	certService := certificates.NewService(roleSet, eventLog)

	bank := funds.NewInMemoryBank()
	marketService := marketplace.NewService(roleSet, eventLog, ledgerService, bank, cfg.Marketplace.EscrowAccount)

	// The orchestrator mints retirement certificates from retirement events.
	// It needs the Minter capability before the first retirement lands.
	if err := roleSet.Grant(cfg.Registry.Owner, cfg.Registry.Orchestrator, roles.Minter); err != nil {
		log.Fatal("Failed to grant orchestrator role:", err)
	}
	orch := orchestrator.New(cfg.Registry.Orchestrator, certService, cfg.Registry.CertificateURI)
	orch.Attach(eventLog)

	repo, err := archive.Open(cfg.Database.GetDatabaseURL())
	if err != nil {
		log.Fatal("Failed to connect to archive database:", err)
	}
	eventLog.Subscribe(func(ev events.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.SaveEvent(ctx, ev); err != nil {
			log.Println("archive: save event:", err)
		}
		if ev.Type == events.TypeCreditsSold {
			if err := repo.SaveTrade(ctx, tradeFromEvent(ev)); err != nil {
				log.Println("archive: save trade:", err)
			}
		}
	})

	if cfg.Search.Enabled {
		indexer, err := archive.NewEventIndexer(cfg.Search.Addresses, cfg.Search.Index)
		if err != nil {
			log.Fatal("Failed to connect to Elasticsearch:", err)
		}
		eventLog.Subscribe(func(ev events.Event) {
			if err := indexer.Index(ev); err != nil {
				log.Println("search: index event:", err)
			}
		})
	}

	hub := stream.NewHub()
	defer hub.Stop()
	eventLog.Subscribe(hub.Publish)

	r := gin.Default()

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API alive!"})
	})
	r.GET("/ws/events", func(c *gin.Context) {
		if err := hub.HandleConnection(c.Writer, c.Request); err != nil {
			log.Println("websocket: upgrade:", err)
		}
	})

	secret := []byte(cfg.Security.JWTSecret)
	auth.NewHandler(secret).RegisterRoutes(r.Group("/"))

	// Engine operations run one at a time, matching the sequential execution
	// model the services' reentrancy guards assume.
	api := r.Group("/api/v1", auth.Middleware(secret), serialize())
	roles.NewHandler(roleSet).RegisterRoutes(api)
	ledger.NewHandler(ledgerService, cfg.Registry.MaxFieldLength).RegisterRoutes(api.Group("/ledger"))
	registry.NewHandler(registryService, cfg.Registry.MaxFieldLength).RegisterRoutes(api.Group("/registry"))
	marketplace.NewHandler(marketService, cfg.Registry.MaxFieldLength).RegisterRoutes(api.Group("/marketplace"))
	certificates.NewHandler(certService).RegisterRoutes(api)
	reports.NewHandler(marketService).RegisterRoutes(api)
	archive.NewHandler(repo).RegisterRoutes(api.Group("/archive"))

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	log.Println("Server running on", srv.Addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

func serialize() gin.HandlerFunc {
	var mu sync.Mutex
	return func(c *gin.Context) {
		mu.Lock()
		defer mu.Unlock()
		c.Next()
	}
}

func tradeFromEvent(ev events.Event) marketplace.Trade {
	trade := marketplace.Trade{
		ListingID:  ev.Ref,
		Buyer:      ev.Principal,
		At:         ev.At,
		Amount:     big.NewInt(0),
		TotalPrice: big.NewInt(0),
	}
	if seller, ok := ev.Fields["seller"].(string); ok {
		trade.Seller = seller
	}
	if raw, ok := ev.Fields["amount"].(string); ok {
		trade.Amount.SetString(raw, 10)
	}
	if raw, ok := ev.Fields["total_price"].(string); ok {
		trade.TotalPrice.SetString(raw, 10)
	}
	return trade
}
