package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/regsync/internal/adapters/driving/rest"
	"github.com/custodia-labs/regsync/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync service",
	Long: `Runs the background scheduler and the HTTP control API until
interrupted. The scheduler fires a full sync on the configured
interval; the API triggers ad-hoc runs and reports task status.

Edits to the config file are picked up live: a changed interval
reschedules the next run without a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8090", "HTTP listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	server := rest.NewServer(serveAddr, a.syncOrch, a.settings)

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.scheduler.Start(ctx)
	}()
	go func() {
		errCh <- server.Start()
	}()

	watcherDone := watchConfig(ctx, a)

	logger.Info("regsync %s serving on %s", version, serveAddr)

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil {
			logger.Error("serve: %v", err)
		}
		stop()
	}

	// Drain: stop taking triggers, let the in-flight run finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("shutting down http server: %v", shutdownErr)
	}
	if stopErr := a.scheduler.Stop(); stopErr != nil {
		logger.Warn("stopping scheduler: %v", stopErr)
	}
	a.syncOrch.Cancel()
	a.syncOrch.Wait()
	<-watcherDone

	return err
}

// watchConfig reloads the config file on change and reschedules the
// sync job when the interval moved. Editors often replace the file
// rather than write in place, so create and rename count as changes
// too.
func watchConfig(ctx context.Context, a *app) <-chan struct{} {
	done := make(chan struct{})

	// Write defaults on first run so there is a file to edit.
	if _, err := os.Stat(a.config.Path()); err != nil {
		if saveErr := a.config.Save(); saveErr != nil {
			logger.Warn("writing initial config: %v", saveErr)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("config watch unavailable: %v", err)
		close(done)
		return done
	}
	// Watch the directory, not the file: a watch on the file itself
	// dies with the old inode when an editor saves by rename.
	if err := watcher.Add(filepath.Dir(a.config.Path())); err != nil {
		logger.Warn("config watch unavailable: %v", err)
		watcher.Close() //nolint:errcheck
		close(done)
		return done
	}

	go func() {
		defer close(done)
		defer watcher.Close() //nolint:errcheck

		lastInterval := a.interval()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filepath.Base(a.config.Path()) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := a.config.Load(); err != nil {
					logger.Warn("reloading config: %v", err)
					continue
				}
				logger.Info("config reloaded from %s", a.config.Path())

				if interval := a.interval(); interval != lastInterval {
					lastInterval = interval
					if err := a.scheduler.Reschedule(ctx, interval); err != nil {
						logger.Warn("applying new interval: %v", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watch: %v", err)
			}
		}
	}()

	return done
}
