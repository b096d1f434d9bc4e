package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sketchduet-server/internal/server"
)

// newCmd wires flags and SKETCHDUET_* environment variables into cfg.
// Explicit flags win over the environment, the environment over defaults.
func newCmd(cfg *server.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SKETCHDUET")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:          "sketchduet-server",
		Short:        "Cooperative drawing and word guessing game server",
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			var bindErr error
			cmd.Flags().VisitAll(func(f *pflag.Flag) {
				if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
					bindErr = err
					return
				}
				if !f.Changed && v.IsSet(f.Name) {
					if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil && bindErr == nil {
						bindErr = err
					}
				}
			})
			if bindErr != nil {
				return bindErr
			}
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Bind, "bind", cfg.Bind, "address to listen on")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	flags.StringSliceVar(&cfg.OriginPatterns, "origin", cfg.OriginPatterns, "allowed websocket origin patterns")
	flags.DurationVar(&cfg.GraceWindow, "grace-window", cfg.GraceWindow, "how long empty unfinished games are kept")
	flags.DurationVar(&cfg.CleanupInterval, "cleanup-interval", cfg.CleanupInterval, "how often idle games and connections are swept")
	flags.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "close connections silent for this long")
	flags.IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "max websocket messages per second per connection")

	return cmd
}

func gracefulShutdown(customServer *server.Server, httpServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("Shutdown signal received, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Notify connected players before the listener goes down
	if err := customServer.Shutdown(ctx); err != nil {
		log.Printf("Error during custom shutdown: %v", err)
	}

	// Shutdown HTTP server
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server forced to shutdown with error: %v", err)
	}

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func run(cfg server.Config) error {
	customServer, httpServer := server.NewServer(cfg)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(customServer, httpServer, done)

	log.Printf("Listening on %s", httpServer.Addr)
	err := httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")
	return nil
}

func main() {
	cfg := server.DefaultConfig()
	if err := newCmd(&cfg).Execute(); err != nil {
		os.Exit(1)
	}
}
