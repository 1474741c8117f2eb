package main

import (
	"fmt"
	"os"

	"post-reorder-backend/pkg/database"
	"post-reorder-backend/pkg/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedFile is the fixture format read by `reorderd seed`.
type SeedFile struct {
	Items []models.Item `yaml:"items"`
}

var (
	seedGenerate int
	seedPostType string
)

// seedCmd loads fixture items
var seedCmd = &cobra.Command{
	Use:   "seed [file.yaml]",
	Short: "Load fixture items into the store",
	Long: `Loads items from a YAML fixture:

  items:
    - id: 1
      title: About
      post_type: page
      post_status: publish
      menu_order: 3
      parent_id: 0

With --generate N, creates N published items of --post-type instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedGenerate, "generate", 0, "Generate this many items instead of reading a file")
	seedCmd.Flags().StringVar(&seedPostType, "post-type", "post", "Post type for generated items")
}

func readSeedFile(path string) ([]models.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var seed SeedFile
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return seed.Items, nil
}

func generateItems(n int, postType string) []models.Item {
	items := make([]models.Item, n)
	for i := range items {
		items[i] = models.Item{
			Title:      fmt.Sprintf("%s %d", postType, i+1),
			PostType:   postType,
			PostStatus: models.StatusPublish,
			MenuOrder:  n - i,
		}
	}
	return items
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var items []models.Item
	switch {
	case seedGenerate > 0:
		items = generateItems(seedGenerate, seedPostType)
	case len(args) == 1:
		var err error
		if items, err = readSeedFile(args[0]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("a fixture file or --generate is required")
	}

	db, err := database.NewDatabase(cfg.DatabaseConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	batch := uuid.NewString()
	log := logger.With(zap.String("batch", batch))
	for i := range items {
		it := &items[i]
		if it.PostType == "" {
			it.PostType = "post"
		}
		if it.PostStatus == "" {
			it.PostStatus = models.StatusPublish
		}
		if err := db.CreateItem(cmd.Context(), it); err != nil {
			return err
		}
		log.Debug("seeded item", zap.Int64("id", it.ID), zap.String("title", it.Title))
	}
	log.Info("seed complete", zap.Int("items", len(items)))
	return nil
}
