package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/workstack/workstack/internal/auth"
	"github.com/workstack/workstack/internal/cache"
	"github.com/workstack/workstack/internal/db/bunx"
	"github.com/workstack/workstack/internal/repository"
	"github.com/workstack/workstack/internal/server"
	"github.com/workstack/workstack/internal/services/admin"
	"github.com/workstack/workstack/internal/services/iam"
	"github.com/workstack/workstack/internal/services/project"
	"github.com/workstack/workstack/internal/services/task"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Workstack API server",
	Long:  `Starts the HTTP server with the auth, project, task, and admin endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Connect to database
		db, err := bunx.NewDB(cfg.DatabaseURL, cfg.MaxDBConnections)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		log.Printf("Connected to database")

		// Initialize repositories
		userRepo := repository.NewBunUserRepository(db)
		projectRepo := repository.NewBunProjectRepository(db)
		taskRepo := repository.NewBunTaskRepository(db)

		// Policy enforcer; fails startup if any role lacks policy rows.
		enforcer, err := auth.InitEnforcer()
		if err != nil {
			return fmt.Errorf("failed to initialize authorization policies: %w", err)
		}

		authorizer := iam.NewAuthorizer(enforcer, map[string]iam.OwnerFunc{
			auth.ObjectProject: projectRepo.GetOwnerID,
			auth.ObjectTask:    taskRepo.GetAssigneeID,
		})

		tokens := auth.NewTokenService(cfg.Token)
		coordinator := cache.NewCoordinator(cfg.Cache, cache.Regions())
		accounts := iam.NewAccounts(userRepo).WithCache(coordinator)
		provisioner := iam.NewProvisioner(userRepo).WithCache(coordinator)

		projectService := project.NewService(projectRepo, authorizer, coordinator)
		taskService := task.NewService(taskRepo, projectRepo, authorizer, coordinator)
		adminService := admin.NewService(userRepo, projectRepo, taskRepo, authorizer, coordinator)

		// One relying party per configured federated provider.
		ssoProviders := cfg.SSOProviders
		for name, providerCfg := range ssoProviders {
			if providerCfg.RedirectURI == "" {
				providerCfg.RedirectURI = cfg.ServerURL + "/auth/sso/" + name + "/callback"
				ssoProviders[name] = providerCfg
			}
		}
		relyingParties, err := auth.NewRelyingParties(cmd.Context(), ssoProviders)
		if err != nil {
			return fmt.Errorf("failed to configure federated providers: %w", err)
		}
		for name := range relyingParties {
			log.Printf("Federated login enabled for provider %s", name)
		}

		router := server.NewRouter(server.RouterOptions{
			Tokens:         tokens,
			Accounts:       accounts,
			Provisioner:    provisioner,
			RelyingParties: relyingParties,
			Projects:       projectService,
			Tasks:          taskService,
			Admin:          adminService,
			Cfg:            cfg,
		})

		srv := &http.Server{
			Addr:              cfg.ServerAddr,
			Handler:           server.WrapH2C(router),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Printf("Listening on %s", cfg.ServerAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		case sig := <-stop:
			log.Printf("Received %s, shutting down", sig)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		log.Printf("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
