package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	intconfig "backoffice/internal/config"
	router "backoffice/internal/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var createSchema bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "backoffice",
	Short:         "Admin back office for the food-ordering platform",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var checkSchemaCmd = &cobra.Command{
	Use:   "check-schema",
	Short: "Bind every entity definition against the database and report mismatches",
	Args:  cobra.NoArgs,
	RunE:  runCheckSchema,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&createSchema, "create-schema", false, "create missing catalog tables before starting")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkSchemaCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := intconfig.LoadEnv()
	if err != nil {
		return err
	}
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	app, err := build(cmd.Context(), env, createSchema)
	if err != nil {
		return err
	}
	defer app.Close()

	r := router.NewRouter(env, app.Service)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("back office listening on http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Println("server stopped")
	return nil
}

func runCheckSchema(cmd *cobra.Command, _ []string) error {
	env, err := intconfig.LoadEnv()
	if err != nil {
		return err
	}
	app, err := build(cmd.Context(), env, createSchema)
	if err != nil {
		return err
	}
	defer app.Close()

	names := app.Service.Registry.Names()
	for _, name := range names {
		d, _ := app.Service.Registry.Definition(name)
		fmt.Fprintf(cmd.OutOrStdout(), "ok  %-14s table=%s\n", name, d.Table)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d entity types bound\n", len(names))
	return nil
}
