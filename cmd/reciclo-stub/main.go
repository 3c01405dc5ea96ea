package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"reciclo/internal/config"
	"reciclo/internal/pkg/auth"
	"reciclo/internal/pkg/logger"
	"reciclo/internal/stubapi"

	"github.com/spf13/cobra"
)

func main() {
	var addr, seed string
	cmd := &cobra.Command{
		Use:          "reciclo-stub",
		Short:        "Serve an in-memory stand-in for the ReCiclo API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, seed)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.StubRunAddress, "listen address")
	cmd.Flags().StringVar(&seed, "seed-curator", "", "create a curator account as email:password before serving")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(addr, seed string) error {
	var l *logger.Logger
	var err error
	if l, err = logger.CreateLogger(config.LogLevel); err != nil {
		log.Fatal("Failed to create logger:", err)
	}

	store, err := stubapi.NewSQLite(context.Background(), nil)
	if err != nil {
		l.Sugar().Errorf("Failed to create the stub store: %s", err)
		return err
	}
	defer store.Close()
	backend := stubapi.NewBackend(store, auth.NewIssuer(config.StubJWTSecret, auth.TokenTTL), nil, l)
	if seed != "" {
		if err := seedCurator(backend, seed); err != nil {
			return err
		}
	}
	service := stubapi.NewServer(backend, addr, l)

	const readHeaderTimeout = 5 * time.Second
	server := &http.Server{Addr: service.RunAddress(), Handler: service.NewRouter(), ReadHeaderTimeout: readHeaderTimeout}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		const shutdownTimeout = 30 * time.Second
		shutdownCtx, cancel := context.WithTimeout(serverCtx, shutdownTimeout)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	l.Sugar().Infof("Stub API listening on %s", service.RunAddress())
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-serverCtx.Done()
	return nil
}

// seedCurator parses "email:password" and creates the curator, named after the email's local part.
func seedCurator(backend *stubapi.Backend, account string) error {
	email, password, ok := strings.Cut(account, ":")
	if !ok || email == "" || password == "" {
		return errors.New("seed-curator must be email:password")
	}
	username, _, _ := strings.Cut(email, "@")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return backend.SeedCurator(ctx, username, email, password)
}
