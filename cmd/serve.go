package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brickwatch/internal/catalog"
	"github.com/sells-group/brickwatch/internal/model"
	"github.com/sells-group/brickwatch/internal/reconcile"
	"github.com/sells-group/brickwatch/internal/store"
)

var servePort int

// api serves read-only views of the catalog and the ledger.
type api struct {
	loadCatalog func() (*catalog.Catalog, error)
	ledger      store.Ledger
	policy      reconcile.Policy
}

func newRouter(a *api, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/items", a.listItems)
	r.Get("/items/{id}/history", a.itemHistory)
	return r
}

func (a *api) listItems(w http.ResponseWriter, r *http.Request) {
	cat, err := a.loadCatalog()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	views, err := buildItemViews(r.Context(), cat, a.ledger, a.policy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *api) itemHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cat, err := a.loadCatalog()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if _, ok := cat.Items[id]; !ok {
		writeError(w, http.StatusNotFound, eris.Errorf("unknown set %q", id))
		return
	}

	filter := store.HistoryFilter{ItemID: id, Merchant: r.URL.Query().Get("merchant")}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, eris.Errorf("invalid limit %q", s))
			return
		}
		filter.Limit = n
	}

	records, err := a.ledger.History(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []model.PriceHistoryRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("serve: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		zap.L().Error("serve: request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog and price history over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		policy, err := loadPolicy()
		if err != nil {
			return err
		}
		ledger, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close() //nolint:errcheck

		port := cfg.Server.Port
		if servePort != 0 {
			port = servePort
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(&api{loadCatalog: loadCatalog, ledger: ledger, policy: policy}, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server error")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
