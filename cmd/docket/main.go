package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/docket/pkg/authz"
	"github.com/platinummonkey/docket/pkg/config"
	"github.com/platinummonkey/docket/pkg/contextkeys"
	"github.com/platinummonkey/docket/pkg/httputil"
	"github.com/platinummonkey/docket/pkg/keycloak"
	"github.com/platinummonkey/docket/pkg/middleware"
	"github.com/platinummonkey/docket/pkg/observability"
	"github.com/platinummonkey/docket/pkg/store"
)

func main() {
	startup := logrus.New()

	cfg, err := config.LoadConfig()
	if err != nil {
		startup.WithError(err).Fatal("failed to load configuration")
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		startup.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime.Std())

	kc := keycloak.NewClient(cfg.KeycloakClientConfig(), logger)
	resolver := store.NewResolver(db, logger)
	identity := store.NewIdentityMapper(db, resolver, logger)
	sessions := authz.NewTokenSessionReader(identity, logger)
	service := authz.NewService(kc, identity, sessions, logger, metrics)
	check := middleware.NewAuthCheck(resolver, identity, service, logger)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/cases", listAccessibleCases(service, sessions)).Methods(http.MethodGet)

	cases := api.PathPrefix("/cases/{caseFileId}").Subrouter()
	cases.Use(check.RequireCaseFileScope(authz.ScopeRead))
	cases.HandleFunc("/access", caseFileAccess()).Methods(http.MethodGet)
	cases.HandleFunc("/share", shareCaseFile(service)).Methods(http.MethodPost)

	if cfg.Keycloak.VerifyIngress {
		verifier, err := middleware.NewTokenVerifier(context.Background(), cfg.Keycloak.BaseURL+"/realms/"+cfg.Keycloak.Realm, cfg.Keycloak.ClientID, logger)
		if err != nil {
			startup.WithError(err).Fatal("failed to build token verifier")
		}
		api.Use(verifier.Handler)
	}

	health := mux.NewRouter()
	health.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			httputil.WriteErrorMessage(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Observability.MetricsEnabled {
		health.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: health,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		startup.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			startup.WithError(err).Fatal("health server failed")
		}
	}()
	go func() {
		startup.WithFields(logrus.Fields{
			"addr":  server.Addr,
			"realm": cfg.Keycloak.Realm,
		}).Info("docket authorization server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			startup.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	startup.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		startup.WithError(err).Error("server shutdown failed")
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		startup.WithError(err).Error("health server shutdown failed")
	}
}

// listAccessibleCases returns every case file ID the caller's token grants
// access to.
func listAccessibleCases(service *authz.Service, sessions authz.SessionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := httputil.BearerToken(r)
		if token == "" {
			httputil.WriteUnauthorized(w, middleware.ReasonNoToken)
			return
		}
		sess, ok := sessions.SessionFromRequest(r)
		if !ok {
			httputil.WriteUnauthorized(w, middleware.ReasonNoToken)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"case_file_ids": service.AccessibleCaseIDs(token, sess.CaseID),
		})
	}
}

// caseFileAccess reports the case file the middleware authorized.
func caseFileAccess() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID, _ := contextkeys.GetCaseFileID(r.Context())
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"case_file_id": caseID,
			"authorized":   true,
		})
	}
}

// shareCaseFile surfaces the sharing extension point.
func shareCaseFile(service *authz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID, _ := contextkeys.GetCaseFileID(r.Context())
		err := service.ShareCaseFile(r.Context(), caseID, r.FormValue("external_id"), r.FormValue("scope"))
		if errors.Is(err, authz.ErrSharingNotAvailable) {
			httputil.WriteErrorMessage(w, http.StatusNotImplemented, err.Error())
			return
		}
		if err != nil {
			httputil.WriteInternalError(w, "sharing failed")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "shared"})
	}
}
