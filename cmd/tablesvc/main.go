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
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/danggoo-services/configs"
	natsconn "github.com/avvvet/danggoo-services/internal/nats"
	"github.com/avvvet/danggoo-services/internal/socketsvc/broker"
	sockethandlers "github.com/avvvet/danggoo-services/internal/socketsvc/handlers"
	"github.com/avvvet/danggoo-services/internal/socketsvc/registry"
	"github.com/avvvet/danggoo-services/internal/socketsvc/routes"
	"github.com/avvvet/danggoo-services/internal/socketsvc/ws"
	"github.com/avvvet/danggoo-services/internal/tablesvc/db"
	"github.com/avvvet/danggoo-services/internal/tablesvc/handlers"
	"github.com/avvvet/danggoo-services/internal/tablesvc/service"
	"github.com/avvvet/danggoo-services/internal/tablesvc/store"
)

const SERVICE_NAME = "table"

func init() {
	config.Logging(SERVICE_NAME + "_service")
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	config.CreateUniqueInstance(SERVICE_NAME)

	tables, err := config.LoadTables()
	if err != nil {
		log.Fatalf("Error: unable to load table layout %v", err)
	}
	log.Infof("Serving %d tables", tables.Count())

	gameStore := openStore()
	defer db.ClosePool()

	// live state, owned here and handed to every connection
	tableStatus := registry.NewTables()
	sockets := registry.NewSockets()
	subs := registry.NewSubscribers()

	b := broker.NewBroadcaster(broker.NewObserverTransport(subs), broker.NewSocketTransport(sockets))
	svc := service.NewGameService(gameStore, b, tables, clockwork.NewRealClock())

	var sub *nats.Subscription
	if natsconn.Enabled() {
		n, err := natsconn.Connect(SERVICE_NAME + "_service_" + config.GetInstanceId())
		if err != nil {
			log.Fatalf("Error: unable to connect to NATS server %v", err)
		}
		defer n.Conn.Close()
		log.Infof("NATS connection established successfully %s", n.Url)

		nb := broker.NewBroker(n.Conn)
		nb.Commander = svc
		b.Add(nb)

		sub, err = nb.Subscribe(broker.CommandSubject)
		if err != nil {
			log.Fatalf("Error: unable to subscribe to %s %v", broker.CommandSubject, err)
		}
	} else {
		log.Warn("NATS_URL not set, events stay in process")
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(config.GetEnvAsInt("RATE_LIMIT", 600), 1*time.Minute))

	s := ws.NewWs(tableStatus, sockets, subs, b, svc)
	routes.SetRoutes(r, sockethandlers.NewHandler(s, tables))
	handlers.NewHandler(svc, handlers.InitAuth()).SetRoutes(r)

	// no WriteTimeout: sockets are long lived and set their own write deadlines
	server := &http.Server{
		Addr:        ":" + config.GetEnv("TABLE_SERVICE_PORT", "5157"),
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
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

	if sub != nil {
		sub.Unsubscribe()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

// openStore uses Postgres when POSTGRES_URL is set and an in-memory store otherwise.
func openStore() service.GameStore {
	if !db.Enabled() {
		log.Warn("POSTGRES_URL not set, games are kept in memory only")
		return store.NewMemStore()
	}

	pool, err := db.Connect()
	if err != nil {
		log.Fatalf("Error: unable to connect to database %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("Error: database migration failed %v", err)
	}
	log.Info("Database connection established and schema is up to date")

	return store.NewGameStore(pool)
}
