package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kass/geo-planner/internal/view"
	"github.com/kass/geo-planner/pkg/archive"
	"github.com/kass/geo-planner/pkg/geomap"
	"github.com/kass/geo-planner/pkg/models"
	"github.com/kass/geo-planner/pkg/nav"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "geoplanner",
	Short: "Browse places and restaurants around a point and build a trip planner",
	Long: `Geo Planner shows the places or restaurants near a coordinate as a list
and a map, lets you collect them into a planner, export it as an image and
upload it.`,
	SilenceUsage: true,
}

var resultCmd = &cobra.Command{
	Use:   "result",
	Short: "Open the interactive result view",
	Long: `Open the result view for a coordinate. x is the longitude and y the
latitude, the same way result links carry them.`,
	RunE: runResult,
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Fetch the records around a coordinate and print them",
	RunE:  runQuery,
}

var plannersCmd = &cobra.Command{
	Use:   "planners",
	Short: "List the uploaded planners kept in the archive",
	RunE:  runPlanners,
}

var (
	entryX     string
	entryY     string
	entryType  string
	entryLink  string
	outputJSON bool
	limit      int
	bbox       string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default config.yaml, then config.yaml.example)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	for _, cmd := range []*cobra.Command{resultCmd, queryCmd} {
		cmd.Flags().StringVar(&entryX, "x", "", "Longitude")
		cmd.Flags().StringVar(&entryY, "y", "", "Latitude")
		cmd.Flags().StringVarP(&entryType, "type", "t", "restaurant", "List mode: place or restaurant")
	}
	resultCmd.Flags().StringVarP(&entryLink, "link", "l", "", "Result link, e.g. /result?type=place&x=127.0&y=37.5")

	queryCmd.Flags().BoolVar(&outputJSON, "json", false, "Output results as JSON")
	queryCmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of results to display")

	plannersCmd.Flags().StringVar(&bbox, "bbox", "", "Only list archived places inside min-lat,min-lon,max-lat,max-lon")

	rootCmd.AddCommand(resultCmd, queryCmd, plannersCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// entryFromFlags validates the flags the same way a result link is validated
func entryFromFlags() (nav.Entry, error) {
	if entryLink != "" {
		return nav.ParseLink(entryLink)
	}
	return nav.Parse(url.Values{
		"type": {entryType},
		"x":    {entryX},
		"y":    {entryY},
	})
}

func runResult(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := entryFromFlags()
	if err != nil {
		return err
	}

	deps, err := a.viewDeps(cmd.Context())
	if err != nil {
		return err
	}
	router, err := view.NewRouter(deps, nav.Link(entry.Mode, entry.Coordinate))
	if err != nil {
		return err
	}
	defer router.Close()

	a.logger.Info("Starting result view",
		zap.Stringer("coordinate", entry.Coordinate),
		zap.Stringer("mode", entry.Mode),
	)
	if _, err := tea.NewProgram(router, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("result view: %w", err)
	}
	return nil
}

type queryRow struct {
	Number     int      `json:"number"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Rating     *float64 `json:"rating,omitempty"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := entryFromFlags()
	if err != nil {
		return err
	}

	printInfo(fmt.Sprintf("Fetching %ss near %s from %s", entry.Mode, entry.Coordinate, a.cfg.API.BaseURL))
	rows, err := fetchRows(cmd.Context(), a, entry)
	if err != nil {
		return err
	}
	if len(rows) > limit {
		printInfo(fmt.Sprintf("Showing first %d of %d results (use --limit to see more)", limit, len(rows)))
		rows = rows[:limit]
	}

	if outputJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	}

	printTitle(fmt.Sprintf("%ss near %s", entry.Mode, entry.Coordinate))
	if len(rows) == 0 {
		printInfo("No results")
	}
	for _, row := range rows {
		line := fmt.Sprintf("%d. %s", row.Number, row.Name)
		if row.Type != "" {
			line += fmt.Sprintf(" %s(%s)%s", colorCyan, row.Type, colorReset)
		}
		if row.Rating != nil {
			line += fmt.Sprintf(" ★%s", models.FormatFloat(*row.Rating))
		}
		if row.DistanceKm != nil {
			line += fmt.Sprintf(" - %.2f km", *row.DistanceKm)
		}
		fmt.Println(line)
	}
	return nil
}

func fetchRows(ctx context.Context, a *app, entry nav.Entry) ([]queryRow, error) {
	if entry.Mode == models.ModeRestaurant {
		records, err := a.client.Restaurants(ctx, entry.Coordinate)
		if err != nil {
			return nil, err
		}
		rows := make([]queryRow, len(records))
		for i, r := range records {
			rows[i] = queryRow{Number: i + 1, Name: r.Name, Type: r.Type}
		}
		return rows, nil
	}

	records, err := a.client.Places(ctx, entry.Coordinate)
	if err != nil {
		return nil, err
	}
	origin := entry.Coordinate.Location()
	rows := make([]queryRow, len(records))
	for i, p := range records {
		loc := p.Location()
		rating := float64(p.Rating)
		dist := geomap.Distance(origin, loc)
		rows[i] = queryRow{
			Number:     i + 1,
			Name:       p.Name,
			Type:       p.Type,
			Rating:     &rating,
			Lat:        &loc.Lat,
			Lon:        &loc.Lon,
			DistanceKm: &dist,
		}
	}
	return rows, nil
}

func runPlanners(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := a.archive(cmd.Context())
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("archive driver %q keeps no planners", a.cfg.Archive.Driver)
	}

	if bbox != "" {
		return printItemsInBox(cmd.Context(), store)
	}

	planners, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	printTitle(fmt.Sprintf("%d uploaded planners", len(planners)))
	for _, p := range planners {
		printStat(p.CreatedAt.Local().Format("2006-01-02 15:04"), strings.Join(p.Names(), ", "))
	}
	return nil
}

func printItemsInBox(ctx context.Context, store archive.Store) error {
	spatial, ok := store.(archive.SpatialStore)
	if !ok {
		return fmt.Errorf("archive driver does not support --bbox")
	}
	box, err := parseBox(bbox)
	if err != nil {
		return err
	}
	items, err := spatial.ItemsInBox(ctx, box)
	if err != nil {
		return err
	}

	center := box.Center()
	sort.SliceStable(items, func(i, j int) bool {
		return geomap.Distance(center, items[i].Place.Location()) < geomap.Distance(center, items[j].Place.Location())
	})
	printTitle(fmt.Sprintf("%d archived places in box", len(items)))
	for i, item := range items {
		loc := item.Place.Location()
		fmt.Printf("%d. %s: (%.6f, %.6f)\n", i+1, item.Name, loc.Lat, loc.Lon)
	}
	return nil
}

func parseBox(s string) (models.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return models.BoundingBox{}, fmt.Errorf("bbox needs min-lat,min-lon,max-lat,max-lon, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return models.BoundingBox{}, fmt.Errorf("invalid bbox value %q: %w", p, err)
		}
		v[i] = f
	}
	return models.BoundingBox{
		BottomLeft: models.Location{Lat: v[0], Lon: v[1]},
		TopRight:   models.Location{Lat: v[2], Lon: v[3]},
	}, nil
}

// logDestination keeps the terminal for the UI; CLI commands log to stderr
func logDestination(interactive bool, file string) string {
	if interactive {
		return file
	}
	return "stderr"
}
