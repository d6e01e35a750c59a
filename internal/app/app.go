package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sunsync/sunsync-hass/internal/config"
	"github.com/sunsync/sunsync-hass/internal/connection"
	"github.com/sunsync/sunsync-hass/internal/inverter"
	"github.com/sunsync/sunsync-hass/internal/statesync"
	"golang.org/x/sync/errgroup"
)

// Run drives the periodic sync loop and blocks until ctx is cancelled.
// Each cycle is fully sequential: resolve connectivity if not yet
// established, poll the inverter, push the readings. A failed cycle never
// stops the loop; the next tick retries from wherever it failed.
func Run(
	parentCtx context.Context,
	cfg *config.Config,
	resolver *connection.Resolver,
	invClient *inverter.Client,
	syncer *statesync.Synchronizer,
	logger *logrus.Logger,
) {
	grp, ctx := errgroup.WithContext(parentCtx)

	grp.Go(func() error {
		connected := false
		ticker := time.NewTicker(cfg.GetSyncInterval())
		defer ticker.Stop()

		// First cycle runs immediately, later ones on the ticker.
		runCycle(ctx, cfg, resolver, invClient, syncer, &connected, logger)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				runCycle(ctx, cfg, resolver, invClient, syncer, &connected, logger)
			}
		}
	})

	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Warn("app: background group exited")
	}
}

func runCycle(
	ctx context.Context,
	cfg *config.Config,
	resolver *connection.Resolver,
	invClient *inverter.Client,
	syncer *statesync.Synchronizer,
	connected *bool,
	logger *logrus.Logger,
) {
	log := logger.WithField("cycle_id", uuid.NewString())

	if !*connected {
		if err := resolver.EnsureConnectivity(ctx); err != nil {
			log.WithError(err).Warn("Connectivity not established, retrying next cycle")
			return
		}
		*connected = true
	}

	readings, err := invClient.Poll(ctx)
	if err != nil {
		log.WithError(err).Warn("Inverter poll failed, skipping cycle")
		return
	}
	if len(readings) == 0 {
		log.Debug("No readings this cycle")
		return
	}

	if err := syncer.Sync(ctx, cfg.DeviceID, readings); err != nil {
		log.WithError(err).Warn("Sync cycle completed with failures")
		return
	}
	log.WithField("readings", len(readings)).Info("Sync cycle complete")
}
