package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atinyakov/BagWardrobe/internal/client/api"
	"github.com/atinyakov/BagWardrobe/internal/client/app"
	"github.com/atinyakov/BagWardrobe/internal/client/storage"
	"github.com/atinyakov/BagWardrobe/internal/collection"
	"github.com/atinyakov/BagWardrobe/internal/db"
	"github.com/atinyakov/BagWardrobe/internal/logger"
	"github.com/atinyakov/BagWardrobe/internal/repository"
)

const (
	cleanupInterval  = time.Hour
	removedRetention = 30 * 24 * time.Hour
)

// cli holds the flag values and the collection opened for one invocation.
type cli struct {
	url      string
	dataDir  string
	dsn      string
	timeout  time.Duration
	maxWidth uint
	logLevel string

	in  io.Reader
	out io.Writer

	log   *zap.Logger
	db    *sql.DB
	store *collection.Store
	app   *app.App
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".bagwardrobe"
	}
	return filepath.Join(dir, "bagwardrobe")
}

func newRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	c := &cli{in: in, out: out}

	root := &cobra.Command{
		Use:           "bagwardrobe",
		Short:         "Catalogue your handbags and get an AI critique of the collection",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	flags := root.PersistentFlags()
	flags.StringVar(&c.url, "url", "http://localhost:8080", "analysis proxy base URL")
	flags.StringVar(&c.dataDir, "data-dir", defaultDataDir(), "directory for the local collection files")
	flags.StringVar(&c.dsn, "dsn", "", "PostgreSQL DSN; when set the collection is stored in the database")
	flags.DurationVar(&c.timeout, "timeout", 90*time.Second, "analysis request timeout")
	flags.UintVar(&c.maxWidth, "max-width", 0, "downscale uploaded images wider than this many pixels (0 keeps originals)")
	flags.StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		c.keyCommand(),
		c.addCommand(),
		c.listCommand(),
		c.removeCommand(),
		c.updateCommand(),
		c.totalsCommand(),
		c.analyzeCommand(),
		c.shellCommand(),
	)

	return root
}

// open initializes logging, the persistence backend and the store.
func (c *cli) open(ctx context.Context) error {
	l := logger.New()
	if err := l.Init(c.logLevel); err != nil {
		return err
	}
	c.log = l.Log

	persister, err := c.persister(ctx)
	if err != nil {
		return err
	}

	decoder := collection.FileDecoder{MaxWidth: c.maxWidth}
	store, err := collection.Open(ctx, persister, decoder)
	if err != nil {
		return fmt.Errorf("open collection: %w", err)
	}
	c.store = store

	client := api.New(&http.Client{Timeout: c.timeout}, c.url)
	c.app = app.New(store, client, c.log)
	return nil
}

func (c *cli) persister(ctx context.Context) (collection.Persister, error) {
	if c.dsn == "" {
		c.log.Debug("using local storage", zap.String("dir", c.dataDir))
		return storage.NewLocalStorage(c.dataDir)
	}

	conn, err := db.InitPostgres(c.dsn)
	if err != nil {
		return nil, err
	}
	c.db = conn
	db.StartSoftDeleteCleaner(ctx, conn, cleanupInterval, removedRetention, c.log)
	c.log.Debug("using postgres storage")
	return repository.NewPostgresCollectionRepository(conn), nil
}

func (c *cli) close() {
	if c.db != nil {
		_ = c.db.Close()
	}
	if c.log != nil {
		_ = c.log.Sync()
	}
}
