// Command kommo-sync replays the Kommo sync of a converted lead, for
// conversions that ended up in the dead-letter queue.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/config"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/kommo"
	"github.com/xavierca1/ligue-crm/internal/infra/logger"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "kommo-sync <lead-id>",
		Short: "Push a converted lead to Kommo as a won deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return syncLead(cmd.Context(), args[0], force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "sync even when the lead is not Converted")
	return cmd
}

func syncLead(ctx context.Context, leadID string, force bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Store != config.StorePostgres {
		return errors.New("kommo-sync needs STORE=postgres")
	}
	if cfg.KommoAPIToken == "" {
		return errors.New("KOMMO_API_TOKEN must be set")
	}

	logg, err := logger.New(cfg.LogLevel, "console", "kommo-sync")
	if err != nil {
		return err
	}
	defer func() { _ = logg.Sync() }()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	lead, err := database.NewLeadRepository(db).FindByID(ctx, leadID)
	if err != nil {
		return fmt.Errorf("load lead %s: %w", leadID, err)
	}
	if lead.Status != entity.StatusConverted && !force {
		return fmt.Errorf("lead %s is %s, not Converted; use --force to sync anyway", lead.ID, lead.Status)
	}

	client := kommo.NewClient(cfg.KommoAPIToken, cfg.KommoBaseURL, logg)
	event := usecase.NewLeadEvent(usecase.EventLeadConverted, lead, entity.UserRef{}, time.Now())
	if err := client.SyncConvertedLead(ctx, event); err != nil {
		return fmt.Errorf("kommo sync: %w", err)
	}

	logg.Info("lead synced to Kommo", zap.String("lead_id", lead.ID), zap.String("name", lead.Name))
	return nil
}
