// Command bucketfs serves a bucket as a hierarchical filesystem over HTTP.
//
// Run with:
//
//	bucketfs -config bucketfs.yml -env .env
//
// Every setting can also be given as a BUCKETFS_* environment variable,
// e.g. BUCKETFS_STORAGE_PROVIDER=memory BUCKETFS_STORAGE_BUCKET=scratch.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koustreak/bucketfs/internal/config"
	"github.com/koustreak/bucketfs/internal/filestore"
	_ "github.com/koustreak/bucketfs/internal/filestore/memory"
	_ "github.com/koustreak/bucketfs/internal/filestore/minio"
	_ "github.com/koustreak/bucketfs/internal/filestore/s3"
	"github.com/koustreak/bucketfs/internal/logger"
	"github.com/koustreak/bucketfs/internal/server"
	"github.com/koustreak/bucketfs/internal/vfs"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	envFile := flag.String("env", ".env", "optional .env file loaded before environment overrides")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintf(os.Stderr, "bucketfs: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}

	log := logger.New(&cfg.Log)
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := filestore.Open(ctx, &cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = client.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("storage unreachable: %w", err)
	}

	fs, err := vfs.NewAdapter(client, cfg.Storage.Bucket, cfg.Adapter, vfs.WithLogger(log))
	if err != nil {
		return err
	}

	srv := server.New(cfg.HTTP, fs, server.WithLogger(log), server.WithHealthCheck(client.Ping))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	log.With().
		Str("provider", string(cfg.Storage.Provider)).
		Str("bucket", cfg.Storage.Bucket).
		Str("root", fs.Prefixer().Prefix()).
		Logger().Info("bucketfs started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return srv.Shutdown(context.Background())
}
