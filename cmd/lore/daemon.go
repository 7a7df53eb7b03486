package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/engine"
	"github.com/lorehq/lore/internal/search"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Watch the stores and keep the search index fresh",
	Long: "Watches the store files and rebuilds the search index after writes\n" +
		"settle, and serves /search and /healthz on a local HTTP port.",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		logger := slog.New(slog.NewJSONHandler(&lumberjack.Logger{
			Filename:   eng.Root.DaemonLogFile(),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		}, nil))

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()

		watched := []string{
			eng.Root.JournalFile(),
			eng.Root.PatternsFile(),
			eng.Root.FailuresFile(),
			eng.Root.GraphFile(),
			eng.Root.SessionsDir(),
			eng.Root.GoalsDir(),
		}
		for _, p := range watched {
			if err := watcher.Add(p); err != nil {
				logger.Warn("watch failed", "path", p, "error", err.Error())
			}
		}

		if _, err := eng.Search.Rebuild(ctx); err != nil {
			logger.Error("initial rebuild failed", "error", err.Error())
		}

		debounce := config.GetDuration("daemon.debounce")
		if debounce <= 0 {
			debounce = 2 * time.Second
		}

		srv := &http.Server{
			Addr:    config.GetString("daemon.addr"),
			Handler: daemonMux(eng),
		}
		go func() {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server", "error", err.Error())
			}
		}()

		fmt.Println("daemon watching", len(watched), "paths on", srv.Addr)

		// Writes arrive in bursts (append + lock + rename); the timer
		// resets on each event so a burst triggers one rebuild.
		var timer *time.Timer
		rebuild := make(chan struct{}, 1)
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debug("change", "path", ev.Name, "op", ev.Op.String())
				if timer == nil {
					timer = time.AfterFunc(debounce, func() { rebuild <- struct{}{} })
				} else {
					timer.Reset(debounce)
				}
			case <-rebuild:
				timer = nil
				start := time.Now()
				res, err := eng.Search.Rebuild(ctx)
				if err != nil {
					logger.Error("rebuild failed", "error", err.Error())
					continue
				}
				logger.Info("rebuilt",
					"decisions", res.Decisions,
					"patterns", res.Patterns,
					"transfers", res.Transfers,
					"elapsed", time.Since(start).String())
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Warn("watcher", "error", err.Error())
			case <-ctx.Done():
				logger.Info("shutting down")
				shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutCancel()
				_ = srv.Shutdown(shutCtx)
				return nil
			}
		}
	},
}

func daemonMux(eng *engine.Engine) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			http.Error(w, "missing q parameter", http.StatusBadRequest)
			return
		}
		opts := search.Options{
			Mode:    search.Mode(r.URL.Query().Get("mode")),
			Project: r.URL.Query().Get("project"),
		}
		results, err := eng.Search.Search(r.Context(), q, opts)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(results)
	})
	return mux
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
