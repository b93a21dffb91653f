// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripease/internal/config"
	httptransport "tripease/internal/http"
	"tripease/internal/http/handlers"
	"tripease/internal/infra"
	"tripease/internal/maps"
	"tripease/internal/modules/booking"
	"tripease/internal/modules/dispatch"
	"tripease/internal/modules/pricing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("TRIPEASE_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	var routes handlers.RouteEstimator
	if cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		routes = routeSvc
	} else {
		log.Print("GOOGLE_MAPS_API_KEY not set; using haversine route estimates")
		routes = maps.HaversineEstimator{}
	}

	rates, err := pricing.NewStore(dbPool).LoadRates(ctx)
	if err != nil || len(rates) == 0 {
		if err != nil {
			log.Printf("load fare rates: %v; using defaults", err)
		}
		rates = pricing.DefaultRates()
	}
	pricingSvc := pricing.NewService(rates)

	bookingStore := booking.NewStore(dbPool)
	bookingSvc := booking.NewService(bookingStore, pricingSvc, routes)

	dispatchStore := dispatch.NewStore(redisClient)
	dispatchSvc := dispatch.NewService(bookingSvc, dispatchStore, cfg.Dispatch.RadiusKm)

	server := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httptransport.NewServer(httptransport.ServerDeps{
			Bookings: bookingSvc,
			Dispatch: dispatchSvc,
			Pricing:  pricingSvc,
			Routes:   routes,
			Verifier: verifier,
		}).Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
