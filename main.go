package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"wallaflow/config"
	"wallaflow/logger"
	"wallaflow/models"
	"wallaflow/processor"
	"wallaflow/reader/wallapop"
	"wallaflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, cfg.Metrics.CloudWatch.Dashboard)
	}

	run := log.WithFields(logger.Fields{
		"service": cfg.Wallaflow.Name,
		"version": cfg.Wallaflow.Version,
		"run_id":  uuid.NewString(),
	})
	run.Info("starting wallaflow")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	if err := runPipeline(ctx, cfg, run); err != nil {
		run.WithError(err).Error("run failed")
		os.Exit(1)
	}

	logger.ReportRun(ctx, log)
	run.Info("wallaflow finished")
}

// runPipeline executes one sequential batch run: load the day's persisted
// ids, fetch every configured query, dedupe, strip clothing noise, gate
// against the persisted ids, enrich the survivors and append them to the
// daily dataset.
func runPipeline(ctx context.Context, cfg *config.Config, log *logger.Entry) error {
	datasetWriter := writer.NewDatasetWriter(cfg)
	path := datasetWriter.DailyPath(time.Now())
	existing := datasetWriter.LoadExistingIDs(path)
	log.WithFields(logger.Fields{"path": path, "known_ids": len(existing)}).Info("loaded persisted listing ids")

	reader := wallapop.NewSearchReader(cfg)
	var all []models.Listing
	for _, query := range cfg.Search.Queries {
		log.WithFields(logger.Fields{
			"keywords":    query.Keywords,
			"category_id": query.CategoryID,
		}).Info("running search query")

		items, err := reader.FetchAll(ctx, query)
		if err != nil {
			// Partial results are still worth keeping; the next run picks
			// up whatever this one missed.
			log.WithError(err).WithFields(logger.Fields{
				"keywords": query.Keywords,
				"partial":  len(items),
			}).Warn("search query ended early; keeping partial results")
		}
		all = append(all, items...)
	}
	log.WithFields(logger.Fields{"listings": len(all)}).Info("acquisition complete")

	unique, duplicates := processor.RemoveDuplicates(all)
	logger.AddDuplicatesDropped(duplicates)
	log.WithFields(logger.Fields{"unique": len(unique), "duplicates": duplicates}).Info("intra-run deduplication done")

	clothingFilter := processor.NewClothingFilter(cfg.Filter.ClothingKeywords)
	relevant, noise := clothingFilter.Apply(unique)
	logger.AddNoiseFiltered(noise)
	log.WithFields(logger.Fields{"kept": len(relevant), "removed": noise}).Info("clothing filter done")

	fresh, known := processor.FilterKnown(relevant, existing)
	logger.AddKnownDropped(known)
	log.WithFields(logger.Fields{"new": len(fresh), "already_saved": known}).Info("persistence gate done")

	if len(fresh) == 0 {
		log.Info("no new listings today; nothing to write")
		return nil
	}

	enricher := processor.NewEnricher(cfg)
	enriched := enricher.Enrich(fresh)

	summary := processor.Summarize(enriched)
	log.WithFields(summary.Fields()).Info("dataset statistics")

	if err := datasetWriter.Append(path, enriched); err != nil {
		return err
	}
	logger.AddListingsWritten(len(enriched))
	log.WithFields(logger.Fields{"path": path, "written": len(enriched)}).Info("daily dataset updated")

	return nil
}
