// cmd/web/main.go
//
// Pesquisa – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Connect to Vault when VAULT_ADDR is set, so `vault:` config values
//     can be resolved.
//
//  2. Load config (.env → conf/global.yaml → PESQUISA_ env overlay).
//
//  3. Start daily rotating logger (tees to console when running in a TTY).
//
//  4. Build the backend client and the delivery strategy selected by
//     `delivery.mode`.
//
//  5. Open the audit DB when `audit.dsn` is set and migrate its table.
//     Without a DSN attempts are not recorded.
//
//  6. Open the optional GeoLite2 database for request enrichment.
//
//  7. Build the respondent registry (lazy per-browser controllers with
//     idle and LRU eviction), the operator session store, and the CSRF
//     signer.
//
//  8. Serve the chi router with configured timeouts until SIGINT/SIGTERM,
//     then drain in-flight requests.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/pesquisa/internal/api"
	"github.com/yanizio/pesquisa/internal/audit"
	"github.com/yanizio/pesquisa/internal/config"
	"github.com/yanizio/pesquisa/internal/database"
	"github.com/yanizio/pesquisa/internal/delivery"
	"github.com/yanizio/pesquisa/internal/form"
	"github.com/yanizio/pesquisa/internal/logger"
	"github.com/yanizio/pesquisa/internal/payload"
	"github.com/yanizio/pesquisa/internal/requestinfo"
	"github.com/yanizio/pesquisa/internal/server"
	"github.com/yanizio/pesquisa/internal/session"
	"github.com/yanizio/pesquisa/internal/submission"
	"github.com/yanizio/pesquisa/internal/vault"
	"github.com/yanizio/pesquisa/internal/web"
)

// shutdownGrace bounds how long in-flight requests may run after a signal.
const shutdownGrace = 10 * time.Second

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Vault (optional) and config ─────────────────────────────────
	//
	var secrets config.SecretResolver
	if vault.Enabled() {
		vc, err := vault.New(ctx, func(f string, a ...any) { zap.S().Infof(f, a...) })
		if err != nil {
			log.Fatalf("vault: %v", err)
		}
		secrets = vc
	}

	cfg, err := config.Load(ctx, secrets)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logOut, err := logger.New(cfg.Log.Dir, cfg.Log.Level, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 3.  Backend client and delivery strategy ───────────────────────
	//
	cli, err := api.New(cfg.Backend.BaseURL, api.WithTimeout(cfg.Backend.Timeout))
	if err != nil {
		logOut.Fatalf("backend client: %v", err)
	}

	strategy, err := delivery.New(delivery.Settings{
		Mode:   delivery.Mode(cfg.Delivery.Mode),
		Client: cli,
		Messaging: &delivery.Messaging{
			Host:      cfg.Delivery.Host,
			Country:   cfg.Delivery.Country,
			Recipient: cfg.Delivery.Recipient,
			Message: payload.MessageOptions{
				System:   cfg.Delivery.System,
				Location: cfg.Delivery.Location(),
			},
			Open: delivery.DeferredOpener{},
		},
	})
	if err != nil {
		logOut.Fatalf("delivery: %v", err)
	}
	logOut.Infow("delivery strategy ready", "mode", strategy.Name())

	//
	// ── 4.  Audit log (optional) ────────────────────────────────────────
	//
	var (
		recorder audit.Recorder = audit.Nop{}
		attempts web.AttemptCounter
	)
	if cfg.Audit.DSN != "" {
		db, err := database.OpenWithOptions(cfg.Audit.DSN, 4, 2)
		if err != nil {
			logOut.Fatalf("audit db: %v", err)
		}
		defer db.Close()

		st := audit.NewStore(db)
		if err := st.Migrate(ctx); err != nil {
			logOut.Fatalf("audit migrate: %v", err)
		}
		recorder, attempts = st, st
		logOut.Infow("audit log online")
	}

	//
	// ── 5.  GeoIP (optional) ────────────────────────────────────────────
	//
	geo, err := requestinfo.OpenGeo(cfg.Geo.DB)
	if err != nil {
		logOut.Fatalf("geoip: %v", err)
	}
	defer geo.Close()

	//
	// ── 6.  Respondents, operators, and CSRF ────────────────────────────
	//
	registry := submission.NewRegistry(strategy,
		cfg.Respondents.IdleTTL,
		cfg.Respondents.MaxEntries,
		cfg.Respondents.EvictInterval,
		submission.WithHook(audit.Hook(recorder)),
	)
	defer registry.Stop()

	sessions := session.NewStore(cfg.Session.Max, cfg.Session.TTL)

	signer, err := form.NewSigner(cfg.CSRF.Key, 0)
	if err != nil {
		logOut.Fatalf("csrf: %v", err)
	}

	site, err := web.New(web.Deps{
		API:        cli,
		Registry:   registry,
		Sessions:   sessions,
		SessionTTL: cfg.Session.TTL,
		Roles:      cfg.Session.Roles,
		CSRF:       signer,
		Geo:        geo,
		ForceHTTPS: cfg.HTTP.ForceHTTPS,
		Location:   cfg.Delivery.Location(),
		Messaging:  strategy.Name() == string(delivery.ModeMessaging),
		Attempts:   attempts,
	})
	if err != nil {
		logOut.Fatalf("web: %v", err)
	}

	//
	// ── 7.  Serve until signalled ──────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, site.Routes(),
		cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout, cfg.HTTP.IdleTimeout)

	go func() {
		<-ctx.Done()
		logOut.Infow("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logOut.Warnw("shutdown", "err", err)
		}
	}()

	logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logOut.Fatalf("http server: %v", err)
	}
}
