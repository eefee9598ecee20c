// cmd/tools/enqueue/main.go
//
// Enqueue reads newline-delimited CNPJ identifiers from a file or from
// stdin, normalizes them and submits them to the task queue. Already
// known identifiers are re-enqueued as PENDING.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cnpj-workers/internal/cnpj"
	"cnpj-workers/internal/common/config"
	"cnpj-workers/internal/common/database"
	"cnpj-workers/internal/common/logger"
	"cnpj-workers/internal/task"
)

func main() {
	filePath := flag.String("file", "", "Path to a newline-delimited identifier list (default: stdin)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	text, err := readInput(*filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	identifiers := cnpj.NormalizeList(text)
	if len(identifiers) == 0 {
		fmt.Fprintln(os.Stderr, "No identifiers found in input.")
		os.Exit(1)
	}

	submissionID := uuid.New().String()
	zapLog.Info("submitting identifiers",
		zap.String("submissionId", submissionID),
		zap.Int("count", len(identifiers)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres setup failed", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres unreachable", zap.Error(err))
	}

	store := task.NewStore(pg.DB, log)
	if err := store.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("schema setup failed", zap.Error(err))
	}
	if err := store.Enqueue(ctx, identifiers); err != nil {
		zapLog.Fatal("enqueue failed", zap.Error(err), zap.String("submissionId", submissionID))
	}

	// Drop the cached snapshot so viewers see the new queue state at
	// once. A Redis hiccup only delays the refresh until the TTL lapses.
	if rc, rerr := database.NewRedis(cfg.Database.Redis); rerr == nil {
		cache := task.NewCache(rc.Client, cfg.Report.CacheTTL(), log)
		if ierr := cache.Invalidate(ctx); ierr != nil {
			zapLog.Warn("cache invalidation failed", zap.Error(ierr))
		}
		rc.Close()
	}

	batches := int(math.Ceil(float64(len(identifiers)) / float64(cfg.Worker.BatchSize)))
	eta := time.Duration(batches) * cfg.Worker.Cooldown()

	fmt.Printf("Enqueued %d identifier(s) in submission %s.\n", len(identifiers), submissionID)
	fmt.Printf("Estimated completion: about %d minute(s) at the current rate limit.\n",
		int(math.Ceil(eta.Minutes())))
}

func readInput(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}
