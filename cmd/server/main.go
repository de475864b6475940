package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"airjump/internal/config"
	"airjump/internal/database"
	"airjump/internal/events"
	"airjump/internal/handlers"
	"airjump/internal/metrics"
	"airjump/internal/qrtoken"
	"airjump/internal/repository"
	"airjump/internal/security"
	"airjump/internal/service"
)

const cleanupInterval = 15 * time.Minute

func main() {
	// Load configuration
	cfg := config.Load()
	cfg.ConfigureLogging()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Infof("Database connection established (type: %s, venue time zone: %s)", cfg.DatabaseType, cfg.VenueLocation)

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Info("Migrations completed successfully")

	m := metrics.New()

	// The local hub feeds the admin websocket. With NATS configured, events go through
	// NATS and come back into the hub, so every replica sees the whole venue.
	hub := events.NewHub()
	var publisher events.Publisher = hub
	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(cfg.NATSURL, cfg.NATSToken)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer nc.Close()
		if _, err := nc.Forward(hub); err != nil {
			log.Fatalf("Failed to subscribe to NATS events: %v", err)
		}
		publisher = nc
		log.Infof("Publishing venue events to NATS at %s", cfg.NATSURL)
	}

	issuer, err := qrtoken.NewIssuer(cfg.TokenSecret)
	if err != nil {
		log.Fatalf("Failed to create token issuer: %v", err)
	}

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	childRepo := repository.NewChildRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	loyaltyRepo := repository.NewLoyaltyRepository(db)
	partyRepo := repository.NewPartyRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// Initialize services
	authService := service.NewAuthService(db, userRepo, emailService, cfg.SessionDuration)
	childService := service.NewChildService(childRepo, cfg.VenueLocation)
	loyaltyService := service.NewLoyaltyService(db, loyaltyRepo)
	entryService := service.NewEntryService(db, childRepo, visitRepo, loyaltyRepo, loyaltyService, issuer, publisher, m,
		service.EntryOptions{TokenTTL: cfg.TokenTTL, MaxVisitDuration: cfg.MaxVisitDuration, Location: cfg.VenueLocation})
	partyService := service.NewPartyService(partyRepo, publisher, cfg.VenueLocation)
	supportService := service.NewSupportService(ticketRepo, publisher)
	alertService := service.NewAlertService(alertRepo, childRepo, userRepo, emailService, publisher, m)
	backupService := service.NewBackupService(db)

	if err := entryService.SyncMetrics(); err != nil {
		log.Warnf("Failed to load children inside for metrics: %v", err)
	}

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"apple": {
			Name:  "apple",
			Label: "Apple",
			Config: &oauth2.Config{
				ClientID:     cfg.AppleClientID,
				ClientSecret: cfg.AppleClientSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://appleid.apple.com/auth/authorize",
					TokenURL: "https://appleid.apple.com/auth/token",
				},
				Scopes: []string{"name", "email"},
			},
			AuthParams: map[string]string{
				"response_mode": "query",
			},
		},
	}

	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)
	loginLimiter := security.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	defer loginLimiter.Stop()
	proxies, err := security.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}

	// Initialize handlers
	api := &handlers.Handlers{
		Middleware: handlers.NewMiddleware(authService, csrf, loginLimiter, proxies),
		Auth:       handlers.NewAuthHandler(authService, emailService, csrf, oauthProviders, cfg.OAuthRedirectBaseURL, cfg.AppBaseURL),
		Child:      handlers.NewChildHandler(childService, entryService),
		Parent:     handlers.NewParentHandler(loyaltyService, partyService, supportService, alertService),
		Admin:      handlers.NewAdminHandler(entryService, childService, partyService, supportService, alertService, backupService),
		Live:       handlers.NewLiveHandler(hub, cfg.CORSOrigins),
	}

	// Setup routes
	mux := http.NewServeMux()
	api.Register(mux)
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	corsOptions := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", security.CSRFHeaderName},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	// Wrap with CORS and logging middleware
	handler := handlers.Logging(m, corsOptions.Handler(mux))

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runCleanup(ctx, authService, entryService)

	go func() {
		log.Infof("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Graceful shutdown failed: %v", err)
	}
}

// runCleanup periodically removes expired sessions and closes visits nobody checked out
func runCleanup(ctx context.Context, authService *service.AuthService, entryService *service.EntryService) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authService.CleanupExpiredSessions(); err != nil {
				log.Errorf("Error cleaning up expired sessions: %v", err)
			}

			closed, removed, err := entryService.CloseAbandonedVisits()
			if err != nil {
				log.Errorf("Error closing abandoned visits: %v", err)
				continue
			}
			log.WithFields(log.Fields{"closed": closed, "removed": removed}).Debug("Visit cleanup finished")
		}
	}
}
