package cli

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/auth"
	"quizdesk-service/internal/config"
	"quizdesk-service/internal/infra/memory"
)

// NewCreateAdminCmd creates an administrator account or promotes an existing one.
func NewCreateAdminCmd(configPath *string) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create or promote an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreateAdmin(cmd.Context(), *configPath, email, password)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func runCreateAdmin(ctx context.Context, configPath, email, password string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	configureLogging(cfg)
	if cfg.Postgres.URL == "" {
		return errors.New("create-admin needs a postgres url; the in-memory store does not outlive the process")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	svc := app.NewAuthService(b.store, auth.NewSigner(cfg.Auth.JWTSecret, 0), memory.NewOutbox(), 0)
	user, err := svc.EnsureAdmin(ctx, email, password)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"user_id": user.ID, "email": user.Email}).Info("admin ready")
	return nil
}
