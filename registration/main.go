// main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	regapi "github.com/Ftotnem/HACKATHON-SERVICES/registration/api"
	"github.com/Ftotnem/HACKATHON-SERVICES/registration/codegen"
	"github.com/Ftotnem/HACKATHON-SERVICES/registration/service"
	"github.com/Ftotnem/HACKATHON-SERVICES/registration/store"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/api"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/config"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/logger"
	mongodbu "github.com/Ftotnem/HACKATHON-SERVICES/shared/mongodb"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/rabbit"
	redisu "github.com/Ftotnem/HACKATHON-SERVICES/shared/redis"
	"github.com/Ftotnem/HACKATHON-SERVICES/shared/session"
)

// codeReservationTTL bounds how long a generated team code is held in Redis
// before the unique index takes over as the only guard.
const codeReservationTTL = time.Hour

func main() {
	log := logger.NewLogger("registration-service")
	defer log.Sync()

	// --- 1. Load Configuration ---
	if err := config.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		log.Fatal("failed to load env file", "error", err)
	}
	cfg, err := config.LoadRegistrationServiceConfig()
	if err != nil {
		log.Fatal("failed to load configuration", "error", err)
	}
	log.Info("configuration loaded", "env", cfg.AppEnv, "backend", cfg.StoreBackend, "max_members", cfg.TeamMaxMembers)

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	// --- 2. Initialize Data Stores and Shared State ---
	var (
		stores   service.Stores
		reserver codegen.Reserver
		marker   session.Marker
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		mem := store.NewMemoryStore()
		stores = service.Stores{Registrations: mem, Teams: mem, Members: mem}
		reserver = codegen.NewLocalReserver()
		marker = session.NewLocalMarker()
		log.Warn("using in-memory store; data is lost on restart")

	default:
		mongoClient, err := mongodbu.NewClient(startCtx, cfg.MongoDBConnStr, cfg.MongoDBDatabase, log)
		if err != nil {
			log.Fatal("failed to connect to MongoDB", "error", err)
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Error("failed to disconnect from MongoDB", "error", err)
			}
		}()

		collections := store.Collections{
			Registrations: mongoClient.Collection(cfg.MongoDBRegistrationsCollection),
			Teams:         mongoClient.Collection(cfg.MongoDBTeamsCollection),
			Members:       mongoClient.Collection(cfg.MongoDBMembersCollection),
		}
		if err := store.EnsureIndexes(startCtx, collections); err != nil {
			log.Fatal("failed to ensure indexes", "error", err)
		}
		stores = service.Stores{
			Registrations: store.NewRegistrationStore(collections.Registrations),
			Teams:         store.NewTeamStore(collections.Teams),
			Members:       store.NewMemberStore(collections.Members),
		}

		redisClient, err := redisu.NewUniversalClient(startCtx, cfg.RedisAddrs, cfg.RedisPassword, log)
		if err != nil {
			log.Fatal("failed to connect to Redis", "error", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("error closing Redis client", "error", err)
			}
		}()
		reserver = codegen.NewRedisReserver(redisClient, codeReservationTTL)
		marker = session.NewRedisMarker(redisClient)
	}

	// --- 3. Initialize Event Publisher ---
	var publisher service.Publisher = service.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		rabbitClient, err := rabbit.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, log)
		if err != nil {
			log.Fatal("failed to connect to RabbitMQ", "error", err)
		}
		defer rabbitClient.Close()
		publisher = rabbitClient
	} else {
		log.Info("RABBITMQ_URL not set; domain events are not published")
	}

	// --- 4. Initialize Business Logic Services ---
	tracker := session.NewTracker(marker, log)
	auth := session.NewAuthenticator(cfg.JWTSecret, tracker, log)

	registrationService := service.NewRegistrationService(stores, publisher, log)
	teamService := service.NewTeamService(stores,
		codegen.NewGenerator(cfg.TeamCodeLength, reserver),
		session.ContextProvider{},
		publisher,
		log,
		service.TeamOptions{
			MaxMembers:              cfg.TeamMaxMembers,
			EnforceSingleMembership: cfg.EnforceSingleMembership,
		},
	)

	// --- 5. Route Fresh Sign-ins ---
	events, unsubscribe := tracker.Subscribe(64)
	defer unsubscribe()
	go routeSignIns(events, registrationService, cfg.RequestTimeout, log)

	// --- 6. Setup HTTP Server and Register Routes ---
	baseServer := api.NewBaseServer(cfg.ListenAddr, log)
	regapi.NewRegistrationAPIHandlers(registrationService, teamService, auth.Middleware, log, cfg.RequestTimeout).
		RegisterRoutes(baseServer.Router)

	// --- 7. Start HTTP Server ---
	go func() {
		if err := baseServer.Start(); err != nil {
			log.Fatal("HTTP server failed", "error", err)
		}
	}()

	// --- 8. Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := baseServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server graceful shutdown failed", "error", err)
	}
	log.Info("server gracefully stopped")
}

// routeSignIns logs where each newly signed-in participant should land.
func routeSignIns(events <-chan session.Event, rs *service.RegistrationService, timeout time.Duration, log *logger.Logger) {
	for ev := range events {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		st, err := rs.Status(ctx, ev.Identity.Email)
		cancel()
		if err != nil {
			log.WithUser(ev.Identity.Email).Warn("failed to resolve sign-in route", "error", err)
			continue
		}
		log.WithUser(ev.Identity.Email).Info("participant signed in", "next", st.Next, "registered", st.Registered, "has_team", st.HasTeam)
	}
}
