// Command skipgrid-train trains item embeddings from a sequence corpus.
//
// Configuration is layered: built-in defaults, an optional YAML file
// (skipgrid.yaml, or SKIPGRID_CONFIG), then SKIPGRID_* environment
// variables. Checkpoints can go to a local directory, MinIO, S3, or S3
// with DynamoDB-committed completion markers.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/skipgrid"
	"github.com/hupe1980/skipgrid/blobstore"
	minioblob "github.com/hupe1980/skipgrid/blobstore/minio"
	s3blob "github.com/hupe1980/skipgrid/blobstore/s3"
	"github.com/hupe1980/skipgrid/checkpoint"
	"github.com/hupe1980/skipgrid/model"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "skipgrid-train:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sequences, err := readSequences(cfg.Input.Path)
	if err != nil {
		return err
	}
	logger.Info("corpus loaded", "path", cfg.Input.Path, "sequences", len(sequences))

	opts := skipgrid.DefaultOptions()
	opts.VectorSize = cfg.Training.VectorSize
	opts.NegativeSamples = cfg.Training.NegativeSamples
	opts.NumIterations = cfg.Training.NumIterations
	opts.LearningRate = cfg.Training.LearningRate
	opts.MinLearningRate = cfg.Training.MinLearningRate
	opts.NumThreads = cfg.Training.NumThreads
	opts.NumPartitions = cfg.Training.NumPartitions
	opts.Window = cfg.Training.Window
	opts.PopularityPower = cfg.Training.PopularityPower
	opts.Regularization = cfg.Training.Regularization
	opts.Gamma = cfg.Training.Gamma
	opts.UseBias = cfg.Training.UseBias
	opts.ImplicitFeedback = cfg.Training.ImplicitFeedback
	opts.Seed = cfg.Training.Seed
	opts.Verbose = cfg.Training.Verbose

	trainerOpts := []skipgrid.Option{
		skipgrid.WithLogger(logger),
		skipgrid.WithMetricsCollector(&skipgrid.BasicMetricsCollector{}),
	}

	if cfg.Checkpoint.Enabled {
		store, err := buildStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		comp, err := checkpoint.ParseCompression(cfg.Checkpoint.Compression)
		if err != nil {
			return err
		}
		mgr := checkpoint.NewManager(store,
			checkpoint.WithCompression(comp),
			checkpoint.WithLogger(logger.Logger),
		)
		trainerOpts = append(trainerOpts, skipgrid.WithCheckpointManager(mgr))

		opts.CheckpointInterval = cfg.Checkpoint.Interval
		if cfg.Checkpoint.Final {
			opts.FinalDurability = skipgrid.DurabilityCheckpoint
		}
	}

	trainer, err := skipgrid.NewTrainer(opts, trainerOpts...)
	if err != nil {
		return err
	}

	records, err := trainer.Train(ctx, sequences)
	if err != nil {
		return err
	}
	logger.Info("training finished", "records", len(records))

	if cfg.Output.Path != "" {
		if err := writeVectors(cfg.Output.Path, records); err != nil {
			return err
		}
		logger.Info("vectors written", "path", cfg.Output.Path)
	}
	return nil
}

func newLogger(cfg LoggingConfig) (*skipgrid.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	switch cfg.Format {
	case "json":
		return skipgrid.NewJSONLogger(level), nil
	case "", "text":
		return skipgrid.NewTextLogger(level), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
}

// buildStore assembles the checkpoint blob store named by the config.
func buildStore(ctx context.Context, cfg StoreConfig) (blobstore.BlobStore, error) {
	switch cfg.Backend {
	case "memory":
		return blobstore.NewMemoryStore(), nil

	case "local":
		return blobstore.NewLocalStore(cfg.Path)

	case "minio":
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return minioblob.NewStore(client, cfg.Bucket, cfg.Prefix), nil

	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		store := s3blob.NewStore(awss3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix)
		if cfg.DDBTable == "" {
			return store, nil
		}
		baseURI := "s3://" + cfg.Bucket + "/" + cfg.Prefix
		return s3blob.NewCommitStore(store, dynamodb.NewFromConfig(awsCfg), cfg.DDBTable, baseURI, checkpoint.MarkerName), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// readSequences parses the corpus: one sequence per line, whitespace
// separated int64 item ids. Blank lines are skipped.
func readSequences(path string) ([][]model.ItemID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	var sequences [][]model.ItemID
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<24)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		seq := make([]model.ItemID, 0, len(fields))
		for _, field := range fields {
			id, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("corpus line %d: %w", line, err)
			}
			seq = append(seq, model.ItemID(id))
		}
		sequences = append(sequences, seq)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return sequences, nil
}

// writeVectors dumps the trained records as text: side, id, count, then
// the factor values.
func writeVectors(path string, records []model.ItemRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%d\t%d", rec.Side, rec.ID, rec.Count)
		for _, v := range rec.Factors {
			fmt.Fprintf(w, "\t%g", v)
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}
