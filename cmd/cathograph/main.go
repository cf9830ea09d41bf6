// Package main provides the cathograph CLI entry point.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/orneryd/cathograph/pkg/config"
	"github.com/orneryd/cathograph/pkg/feature"
	"github.com/orneryd/cathograph/pkg/graph"
	"github.com/orneryd/cathograph/pkg/material"
	"github.com/orneryd/cathograph/pkg/recommend"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cathograph",
		Short: "Cathograph - Battery Cathode Substitute Recommender",
		Long: `Cathograph recommends substitute materials for a battery-cathode
catalog. It normalizes material features, scores every pair with a hybrid
of weighted-Euclidean, cosine and structural similarity, builds a
thresholded neighbor graph with adaptive density tuning, and answers
top-k substitute queries over the persisted graph.

Typical workflow:
  cathograph sample                  # write a synthetic dataset
  cathograph build                   # dataset -> similarity graph
  cathograph recommend LiCoO2 -k 5   # query substitutes`,
	}

	rootCmd.PersistentFlags().String("config", "", "YAML config file (overrides env)")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cathograph v%s (%s)\n", version, commit)
		},
	})

	// Sample command
	sampleCmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a synthetic cathode dataset",
		RunE:  runSample,
	}
	sampleCmd.Flags().Int("count", 50, "Number of synthetic materials")
	sampleCmd.Flags().Int64("seed", 42, "Generator seed")
	sampleCmd.Flags().String("output", "", "Dataset path (default from config)")
	rootCmd.AddCommand(sampleCmd)

	// Build command
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build the similarity graph from a dataset",
		Long: `Load the material dataset, normalize features, compute all pairwise
hybrid similarities, assemble the thresholded neighbor graph and persist it.`,
		RunE: runBuild,
	}
	buildCmd.Flags().String("dataset", "", "Dataset path, .json or .csv (default from config)")
	buildCmd.Flags().Float64("threshold", 0, "Initial similarity threshold (default from config)")
	buildCmd.Flags().Int("workers", 0, "Pairwise pass workers (0 = all cores)")
	rootCmd.AddCommand(buildCmd)

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all materials in the graph",
		RunE:  runList,
	}
	rootCmd.AddCommand(listCmd)

	// Recommend command
	recommendCmd := &cobra.Command{
		Use:   "recommend [formula]",
		Short: "Recommend substitute materials",
		Args:  cobra.ExactArgs(1),
		RunE:  runRecommend,
	}
	recommendCmd.Flags().IntP("top", "k", 5, "Number of recommendations")
	rootCmd.AddCommand(recommendCmd)

	// Stats command
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print statistics for the persisted graph",
		RunE:  runStats,
	}
	rootCmd.AddCommand(statsCmd)

	// Shell command (interactive menu)
	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive recommendation shell",
		RunE:  runShell,
	}
	rootCmd.AddCommand(shellCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration: YAML file when --config is given,
// environment otherwise.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path, _ = cmd.InheritedFlags().GetString("config")
	}

	var cfg config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
		if err != nil {
			return cfg, err
		}
	} else {
		cfg = config.LoadFromEnv()
	}
	return cfg, cfg.Validate()
}

// newLogger builds the process logger from config.
func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// openStore selects the graph persistence backend. The returned closer is
// a no-op for the file backend.
func openStore(cfg config.Config) (graph.Store, func() error, error) {
	if cfg.StoreBackend == config.StoreBadger {
		store, err := graph.NewBadgerStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	return graph.NewFileStore(cfg.GraphPath), func() error { return nil }, nil
}

func runSample(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	count, _ := cmd.Flags().GetInt("count")
	seed, _ := cmd.Flags().GetInt64("seed")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = cfg.DatasetPath
	}

	records := material.GenerateSample(count, seed)
	if err := material.SaveDataset(records, output); err != nil {
		return err
	}

	fmt.Printf("Wrote %d synthetic materials to %s\n", len(records), output)
	return nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("dataset"); v != "" {
		cfg.DatasetPath = v
	}
	if v, _ := cmd.Flags().GetFloat64("threshold"); v != 0 {
		cfg.Threshold = v
	}
	if v, _ := cmd.Flags().GetInt("workers"); v != 0 {
		cfg.Workers = v
	}
	logger := newLogger(cfg)

	loader := material.NewLoader(material.LoaderOptions{
		LithiumOnly: cfg.LithiumOnly,
		Limit:       cfg.Limit,
	}, logger)

	var set *material.Set
	if strings.HasSuffix(strings.ToLower(cfg.DatasetPath), ".csv") {
		set, err = loader.LoadCSV(cfg.DatasetPath)
	} else {
		set, err = loader.LoadJSON(cfg.DatasetPath)
	}
	if err != nil {
		return err
	}

	space, err := feature.Normalize(set.Materials)
	if err != nil {
		return err
	}

	builder := graph.NewBuilder(space, graph.BuilderOptions{
		Threshold:    cfg.Threshold,
		MinAvgDegree: cfg.MinAvgDegree,
		Workers:      cfg.Workers,
	}, logger)

	result, err := builder.Build(context.Background())
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Save(result.Graph); err != nil {
		return err
	}

	s := result.Stats
	fmt.Printf("Materials:   %d (%d dropped)\n", space.Len(), set.Dropped)
	fmt.Printf("Edges:       %d\n", s.Edges)
	fmt.Printf("Avg degree:  %.2f\n", s.AvgDegree)
	fmt.Printf("Threshold:   %.4f", result.Threshold)
	if result.Adjusted {
		fmt.Printf(" (auto-adjusted from %.2f)", cfg.Threshold)
	}
	fmt.Println()
	fmt.Printf("Similarity:  mean %.4f / p50 %.4f / p80 %.4f / p95 %.4f\n",
		s.MeanSimilarity, s.P50Similarity, s.P80Similarity, s.P95Similarity)
	return nil
}

func loadRecommender(cmd *cobra.Command) (*recommend.Recommender, func() error, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	rec, err := recommend.Load(store, logger)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return rec, closeStore, nil
}

func runList(cmd *cobra.Command, args []string) error {
	rec, closeStore, err := loadRecommender(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	printMaterials(rec)
	return nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
	rec, closeStore, err := loadRecommender(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	k, _ := cmd.Flags().GetInt("top")
	return printRecommendations(rec, args[0], k)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	rec, err := recommend.Load(store, logger)
	if err != nil {
		return err
	}

	materials := rec.Materials()
	var edges int
	for _, formula := range materials {
		edges += rec.NeighborCount(formula)
	}
	avg := 0.0
	if len(materials) > 0 {
		avg = float64(edges) / float64(len(materials))
	}

	fmt.Printf("Nodes:      %d\n", len(materials))
	fmt.Printf("Edges:      %d\n", edges)
	fmt.Printf("Avg degree: %.2f\n", avg)
	return nil
}

func runShell(cmd *cobra.Command, args []string) error {
	rec, closeStore, err := loadRecommender(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	fmt.Println("Cathograph interactive shell")
	fmt.Println("  1. Recommend substitutes")
	fmt.Println("  2. List materials")
	fmt.Println("  3. Exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Select (1-3): ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			fmt.Print("Material formula (e.g. LiCoO2): ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			target := strings.TrimSpace(scanner.Text())
			if target == "" {
				fmt.Println("Please enter a formula")
				continue
			}

			fmt.Print("Number of recommendations (default 5): ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			k := 5
			if s := strings.TrimSpace(scanner.Text()); s != "" {
				if parsed, err := strconv.Atoi(s); err == nil {
					k = parsed
				}
			}

			// Unknown materials are per-query errors; the session goes on.
			if err := printRecommendations(rec, target, k); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "2":
			printMaterials(rec)
		case "3":
			fmt.Println("Exiting...")
			return nil
		default:
			fmt.Println("Select 1-3")
		}
	}
}

func printMaterials(rec *recommend.Recommender) {
	materials := rec.Materials()
	fmt.Printf("Available materials (%d)\n", len(materials))
	for i, formula := range materials {
		fmt.Printf("%3d. %-25s (%2d similar)\n", i+1, formula, rec.NeighborCount(formula))
	}
}

func printRecommendations(rec *recommend.Recommender, target string, k int) error {
	neighbors, err := rec.Recommend(target, k)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return fmt.Errorf("material %q is not in the graph (try 'cathograph list')", target)
		}
		return err
	}

	if len(neighbors) == 0 {
		fmt.Printf("No substitutes above threshold for %s\n", target)
		return nil
	}

	fmt.Printf("Substitutes for %s:\n", target)
	for i, n := range neighbors {
		fmt.Printf("%2d. %-25s %-5s (%5.1f%%)\n",
			i+1, n.Formula, recommend.Stars(n.Similarity), n.Similarity*100)
	}
	return nil
}
