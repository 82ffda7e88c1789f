package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trailview/service-routes/internal/application"
	"github.com/trailview/service-routes/internal/cache"
	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/terrain"
)

var force bool

var backfillCmd = &cobra.Command{
	Use:   "backfill-profiles",
	Short: "Compute and store elevation profiles from terrain data",
	Long: `Samples SRTM terrain elevations along every route without a stored profile and
saves the result as the route's elevation payload.

Use --force to recompute profiles that are already stored.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		srtm, err := terrain.NewSRTM(e.cfg.TerrainConfig.Timeout, e.log.Named("terrain"))
		if err != nil {
			return err
		}

		redisClient := cache.OpenRedis(e.cfg.RedisConfig.Addr, e.cfg.RedisConfig.Password, e.cfg.RedisConfig.DB)
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
		}
		profileCache := cache.NewProfileCache(redisClient, "", e.cfg.RedisConfig.ProfileTTL)

		service := application.NewProfileService(e.repo, profile.NewBuilder(srtm, e.log), profileCache, e.log)
		report, err := service.Backfill(cmd.Context(), e.repo, force)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "updated=%d skipped=%d failed=%d\n", report.Updated, report.Skipped, report.Failed)
		return nil
	},
}

func init() {
	backfillCmd.Flags().BoolVarP(&force, "force", "f", false, "recompute profiles that are already stored")
}
