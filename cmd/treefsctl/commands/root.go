// Package commands implements the treefsctl command tree: a demo CLI
// driving the Tree Engine directly against a chosen Closure Store and
// Blob Driver backend, grounded on the teacher's cmd/dittofs/commands
// package (same rootCmd/Execute/persistent-flag shape).
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/yamafs/treefs/pkg/blob/fsblob"
	"github.com/yamafs/treefs/pkg/blob/s3blob"
	"github.com/yamafs/treefs/pkg/treefs"
	"github.com/yamafs/treefs/pkg/treefs/engine"
	"github.com/yamafs/treefs/pkg/treefs/metrics"
	"github.com/yamafs/treefs/pkg/treefs/store"
	"github.com/yamafs/treefs/pkg/treefs/store/badger"
	"github.com/yamafs/treefs/pkg/treefs/store/memory"
	"github.com/yamafs/treefs/pkg/treefs/store/postgres"
)

// rootNamespace derives stable demo FileID/UserID values across process
// restarts for the persistent store backends (badger, postgres); a real
// deployment would instead read these from its own bootstrap/account
// records, which are out of scope here.
var rootNamespace = uuid.MustParse("6f6e6465-7265-6500-0000-000000000000")

func demoID(name string) treefs.FileID {
	return treefs.FileID(uuid.NewSHA1(rootNamespace, []byte(name)))
}

var (
	storeKind   string
	badgerDir   string
	postgresDSN string
	blobKind    string
	blobDir     string
	s3Bucket    string
	s3Prefix    string
	chunkSize   int64
	maxFileSize int64

	// caller is the fixed demo principal every treefsctl invocation acts
	// as; this CLI has no login step because user account management is
	// out of scope (see pkg/treefs's UserAncestryStore doc comment).
	caller = treefs.UserID(demoID("treefsctl/admin"))
	rootID = demoID("treefsctl/root")
)

var rootCmd = &cobra.Command{
	Use:   "treefsctl",
	Short: "treefsctl - inspect and mutate a treefs hierarchy",
	Long: `treefsctl drives the Tree Engine directly against a Closure Store and
Blob Driver backend of your choosing. It is a demonstration client, not a
remote control plane: there is no server to talk to, every command opens
its own store handle.

Use "treefsctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "memory", "closure store backend (memory|badger|postgres)")
	rootCmd.PersistentFlags().StringVar(&badgerDir, "badger-dir", "", "badger data directory (required for --store=badger)")
	rootCmd.PersistentFlags().StringVar(&postgresDSN, "postgres-dsn", "", "postgres connection string (required for --store=postgres)")
	rootCmd.PersistentFlags().StringVar(&blobKind, "blob", "file_system", "blob driver backend (file_system|s3)")
	rootCmd.PersistentFlags().StringVar(&blobDir, "blob-dir", "", "base directory for the file_system blob driver (default: $XDG_STATE_HOME/treefsctl/blobs)")
	rootCmd.PersistentFlags().StringVar(&s3Bucket, "s3-bucket", "", "bucket for the s3 blob driver")
	rootCmd.PersistentFlags().StringVar(&s3Prefix, "s3-prefix", "", "key prefix for the s3 blob driver")
	rootCmd.PersistentFlags().Int64Var(&chunkSize, "chunk-size", 1<<20, "maximum bytes per chunk of a content write")
	rootCmd.PersistentFlags().Int64Var(&maxFileSize, "max-file-size", 1<<30, "maximum total bytes a regular file may hold")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(lsCmd)
}

// flatUsers is the demo UserAncestryStore: treefsctl has a single fixed
// caller and no group hierarchy, so a user is only its own ancestor — the
// same stand-in pkg/treefs/engine/engine_test.go uses for the same reason.
type flatUsers struct{}

func (flatUsers) IsAncestor(_ context.Context, ancestor, u treefs.UserID) (bool, error) {
	return ancestor == u, nil
}

// buildEngine composes a Tree Engine from the persistent --store/--blob
// flags, the way cmd/dittofs/commands/start.go composes its runtime from
// cfg before serving.
func buildEngine(ctx context.Context) (*engine.Engine, error) {
	s, err := buildStore(ctx)
	if err != nil {
		return nil, err
	}
	blobDriver, err := buildBlobDriver(ctx)
	if err != nil {
		return nil, err
	}

	cfg := treefs.Config{
		RootFileID:  rootID,
		ChunkSize:   chunkSize,
		MaxFileSize: maxFileSize,
	}
	e := engine.New(s, flatUsers{}, blobDriver, cfg)
	e.WithMetrics(metrics.New(nil))
	return e, nil
}

func buildStore(ctx context.Context) (store.Store, error) {
	switch storeKind {
	case "", "memory":
		return memory.New(rootID, caller), nil

	case "badger":
		if badgerDir == "" {
			return nil, fmt.Errorf("--badger-dir is required for --store=badger")
		}
		s, err := badger.Open(badgerDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		if err := s.Bootstrap(rootID, caller); err != nil {
			return nil, fmt.Errorf("failed to bootstrap badger store: %w", err)
		}
		return s, nil

	case "postgres":
		if postgresDSN == "" {
			return nil, fmt.Errorf("--postgres-dsn is required for --store=postgres")
		}
		if err := bootstrapPostgresSchema(ctx, postgresDSN); err != nil {
			return nil, fmt.Errorf("failed to bootstrap postgres schema: %w", err)
		}
		return postgres.New(ctx, postgres.Config{DSN: postgresDSN})

	default:
		return nil, fmt.Errorf("unknown store backend: %q (valid: memory, badger, postgres)", storeKind)
	}
}

// bootstrapPostgresSchema applies the Closure Store DDL and seeds the
// root directory if absent. Schema migration is explicitly out of scope
// for pkg/treefs/store/postgres itself (see postgres.Schema's doc
// comment) — treefsctl is the "operator's migration tool of choice" for
// this demo, not a production deployment's.
func bootstrapPostgresSchema(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, postgres.Schema); err != nil {
		return err
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO files (id, type, owner_id, own_name) VALUES ($1, $2, $3, '') ON CONFLICT (id) DO NOTHING`,
		rootID, treefs.Directory, caller); err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
INSERT INTO file_ancestors_file_descendants (ancestor_id, descendant_id, descendant_path, descendant_depth)
VALUES ($1, $1, '.', 0) ON CONFLICT (ancestor_id, descendant_id) DO NOTHING`, rootID)
	return err
}

func buildBlobDriver(ctx context.Context) (engine.BlobDriver, error) {
	switch blobKind {
	case "", "file_system":
		dir := blobDir
		if dir == "" {
			dir = defaultBlobDir()
		}
		return fsblob.New(fsblob.DefaultConfig(dir))

	case "s3":
		if s3Bucket == "" {
			return nil, fmt.Errorf("--s3-bucket is required for --blob=s3")
		}
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return s3blob.New(s3.NewFromConfig(awsCfg), s3Bucket, s3Prefix), nil

	default:
		return nil, fmt.Errorf("unknown blob driver: %q (valid: file_system, s3)", blobKind)
	}
}

func defaultBlobDir() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			stateDir = home + "/.local/state"
		}
	}
	return stateDir + "/treefsctl/blobs"
}
