package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/arrayql/latticedb/internal/container/hash"
	"github.com/arrayql/latticedb/internal/dbutil"
	"github.com/arrayql/latticedb/internal/storage/buffer"
	"github.com/arrayql/latticedb/internal/storage/disk"
)

func main() {
	dbFile := flag.String("db", "latticedb.db", "path to the database file")
	poolSize := flag.Int("pool-size", dbutil.DefaultOptions().PoolSize, "number of buffer pool frames")
	replacerK := flag.Int("replacer-k", dbutil.DefaultOptions().ReplacerK, "LRU-K history depth")
	workers := flag.Int("workers", 4, "concurrent inserter goroutines in the demo workload")
	count := flag.Int("count", 1000, "number of keys to insert in the demo workload")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(*dbFile, *poolSize, *replacerK, *workers, *count, log); err != nil {
		log.WithError(err).Fatal("latticedb exited with an error")
	}
}

func run(dbFile string, poolSize, replacerK, workers, count int, log *logrus.Logger) error {
	manager, err := disk.NewManager(dbFile, log)
	if err != nil {
		return fmt.Errorf("open disk manager: %w", err)
	}
	defer manager.Close()

	scheduler := disk.NewScheduler(manager, poolSize, log)
	defer scheduler.Shutdown()

	pm := buffer.NewPoolManager(poolSize, replacerK, scheduler, log)

	table, err := hash.New(pm, hash.Config[int64, int64]{
		HeaderMaxDepth:    dbutil.DefaultOptions().HeaderMaxDepth,
		DirectoryMaxDepth: dbutil.DefaultOptions().DirectoryMaxDepth,
		KeyCodec:          hash.Int64Codec(),
		ValCodec:          hash.Int64Codec(),
		Equal:             func(a, b int64) bool { return a == b },
		Hash:              hash.NewHasherFor(hash.Int64Codec()),
	}, log)
	if err != nil {
		return fmt.Errorf("build hash table: %w", err)
	}

	log.WithFields(logrus.Fields{
		"pool_size":  poolSize,
		"replacer_k": replacerK,
		"workers":    workers,
		"count":      count,
	}).Info("starting demo insert workload")

	if err := concurrentInsert(table, workers, count); err != nil {
		return err
	}

	pm.FlushAllPages()

	missing := 0
	for i := int64(0); i < int64(count); i++ {
		if _, err := table.GetValue(i); err != nil {
			missing++
		}
	}
	if missing > 0 {
		log.Warnf("%d/%d keys failed to round-trip through the table", missing, count)
	}

	if err := table.VerifyIntegrity(); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}

	stats := pm.Stats()
	log.WithFields(logrus.Fields{
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"evictions": stats.Evictions,
		"flushes":   stats.Flushes,
	}).Info("workload complete")

	if log.IsLevelEnabled(logrus.DebugLevel) {
		fmt.Fprintln(os.Stdout, table.PrintHT())
	}

	return nil
}

// concurrentInsert fans count keys out across workers goroutines, each
// inserting its own stripe of the key space until its own first failure,
// and returns the first error any worker hit.
func concurrentInsert(table *hash.Table[int64, int64], workers, count int) error {
	if workers < 1 {
		workers = 1
	}
	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := int64(w); i < int64(count); i += int64(workers) {
				if err := table.Insert(i, i*i); err != nil {
					return fmt.Errorf("insert(%d): %w", i, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
