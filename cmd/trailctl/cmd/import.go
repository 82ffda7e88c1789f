package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trailview/service-routes/internal/application"
	"github.com/trailview/service-routes/internal/domain/route"
)

var (
	importName        string
	importDifficulty  string
	importRegion      string
	importDescription string
	importLanguage    string
	importWKID        int
)

var importCmd = &cobra.Command{
	Use:   "import-gpx FILE...",
	Short: "Create routes from GPX tracks",
	Long: `Reads the first track of each GPX file and stores it as a new route. Track
elevations, when every point has one, become the route's stored profile.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := application.ImportOptions{
			Name:        importName,
			RegionCode:  importRegion,
			Description: importDescription,
			Language:    importLanguage,
		}
		if importDifficulty != "" {
			d, err := route.ParseDifficulty(importDifficulty)
			if err != nil {
				return err
			}
			opts.Difficulty = d
		}
		sr, err := route.ParseSpatialReference(importWKID)
		if err != nil {
			return err
		}
		opts.SpatialReference = sr
		if importName != "" && len(args) > 1 {
			return fmt.Errorf("--name can only be used with a single file")
		}

		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		importer := application.NewRouteImporter(e.repo, e.log)
		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			res, err := importer.Import(cmd.Context(), f, opts)
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: route %d %q, %.2f km, %d vertices, profile=%t\n",
				path, res.ID, res.Name, res.DistanceKm, res.Vertices, res.HasProfile)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importName, "name", "n", "", "route name, defaults to the track name")
	importCmd.Flags().StringVarP(&importDifficulty, "difficulty", "d", "", "easy, moderate or hard")
	importCmd.Flags().StringVarP(&importRegion, "region", "r", "", "region code")
	importCmd.Flags().StringVar(&importDescription, "description", "", "route description")
	importCmd.Flags().StringVar(&importLanguage, "lang", "es", "language of --description")
	importCmd.Flags().IntVar(&importWKID, "wkid", int(route.WebMercator), "spatial reference to store geometry in")
}
