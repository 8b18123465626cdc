package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/variables-admin/configs"
	"github.com/avvvet/variables-admin/internal/adminsvc/broker"
	svcconfig "github.com/avvvet/variables-admin/internal/adminsvc/config"
	"github.com/avvvet/variables-admin/internal/adminsvc/db"
	"github.com/avvvet/variables-admin/internal/adminsvc/form"
	handlers "github.com/avvvet/variables-admin/internal/adminsvc/handlers"
	"github.com/avvvet/variables-admin/internal/adminsvc/store"
	"github.com/avvvet/variables-admin/internal/adminsvc/ws"
	nats "github.com/avvvet/variables-admin/internal/nats"
)

const SERVICE_NAME = "admin"

var instanceId string

func init() {
	config.LoadEnv(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
}

func main() {
	cfg, err := svcconfig.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	variablesStore, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open %s backend: %v", cfg.Backend, err)
	}
	defer closeStore()
	log.Infof("%s backend ready", cfg.Backend)

	var opts []form.Option

	// NATS is optional, records are announced only when it is configured
	if cfg.NatsURL != "" {
		n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"_service_"+instanceId)
		if err != nil {
			log.Fatalf("Error: unable to connect to NATS server %v", err)
		}
		defer n.Conn.Close()
		log.Printf("NATS connection established successfully %s", n.Url)

		opts = append(opts, form.WithNotifier(broker.NewBroker(n.Conn)))
	}

	ctrl := form.NewController(variablesStore, opts...)
	hub := ws.NewHub(ctrl.Snapshot)
	ctrl.OnChange(hub.Broadcast)
	defer ctrl.Close()

	go func() {
		if err := ctrl.Load(context.Background()); err != nil {
			log.Errorf("initial load failed: %v", err)
		}
	}()

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(config.SecurityHeaders)
	r.Use(c.Handler)

	// to protect the backend from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(ctrl, variablesStore, hub)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

func openStore(cfg svcconfig.Config) (store.VariablesStore, func(), error) {
	switch cfg.Backend {
	case svcconfig.BackendPostgres:
		pool, err := db.ConnectPostgres(cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPgStore(pool, cfg.Table), db.ClosePool, nil
	case svcconfig.BackendMongo:
		mdb, err := db.ConnectMongo(cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		return store.NewMongoStore(mdb, cfg.Table), func() { db.DisconnectMongo(mdb) }, nil
	default:
		s, err := store.NewRestStore(cfg.SupabaseURL, cfg.SupabaseKey,
			store.WithTimeout(cfg.BackendTimeout), store.WithTable(cfg.Table))
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}
