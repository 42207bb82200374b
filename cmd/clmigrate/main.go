package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/go-oidfed/certledger/storage"
	"github.com/go-oidfed/certledger/storage/badgerstore"
	"github.com/go-oidfed/certledger/storage/model"
)

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, "clmigrate: copy certledger state between storage backends\n")
	_, _ = fmt.Fprintf(os.Stderr, "\n")
	_, _ = fmt.Fprintf(os.Stderr, "Subcommands:\n")
	_, _ = fmt.Fprintf(os.Stderr, "  db       Copy the ledger state from one backend into an empty one\n")
	_, _ = fmt.Fprintf(os.Stderr, "  stats    Print what a backend holds\n")
	_, _ = fmt.Fprintf(os.Stderr, "\n")
	_, _ = fmt.Fprintf(os.Stderr, "Use 'clmigrate <subcommand> -h' for help on a subcommand.\n")
}

// openBackend opens a ledger backend. kind is badger or one of the
// storage.SupportedDrivers.
func openBackend(kind, dir, dsn string) (model.Backend, error) {
	if kind == "badger" {
		if dir == "" {
			return nil, errors.New("badger needs a data directory")
		}
		return badgerstore.Open(badgerstore.Config{Path: dir})
	}
	driver := storage.DriverType(kind)
	if driver == storage.DriverSQLite {
		if dir == "" {
			return nil, errors.New("sqlite needs a data directory")
		}
	} else if dsn == "" {
		return nil, errors.Errorf("%s needs a dsn", kind)
	}
	return storage.NewStorage(
		storage.Config{
			Driver:  driver,
			DSN:     dsn,
			DataDir: dir,
		},
	)
}

func closeBackend(b model.Backend) {
	if err := b.Close(); err != nil {
		log.WithError(err).Error("failed to close backend")
	}
}

func dbCmd(args []string) int {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	var (
		srcType  = fs.String("source-type", "", "Source storage type (badger, sqlite, mysql, postgres)")
		srcDir   = fs.String("source-dir", "", "Source data directory (for badger and sqlite)")
		srcDSN   = fs.String("source-dsn", "", "Source DSN (for mysql/postgres)")
		destType = fs.String("dest-type", "", "Destination storage type (badger, sqlite, mysql, postgres)")
		destDir  = fs.String("dest-dir", "", "Destination data directory (for badger and sqlite)")
		destDSN  = fs.String("dest-dsn", "", "Destination DSN (for mysql/postgres)")
		dryRun   = fs.Bool("dry-run", false, "Perform a dry run without writing to destination")
		v        = fs.Bool("v", false, "Verbose logging")
	)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(
			os.Stderr,
			"Usage: clmigrate db --source-type=<type> [--source-dir=<dir>|--source-dsn=<dsn>] --dest-type=<type> [--dest-dir=<dir>|--dest-dsn=<dsn>] [--dry-run] [--v]\n",
		)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *v {
		log.SetLevel(log.DebugLevel)
	}
	if *srcType == "" || *destType == "" {
		_, _ = fmt.Fprintln(os.Stderr, "--source-type and --dest-type are required")
		fs.Usage()
		return 2
	}
	log.WithFields(
		log.Fields{
			"source-type": *srcType,
			"source-dir":  *srcDir,
			"dest-type":   *destType,
			"dest-dir":    *destDir,
			"dry-run":     *dryRun,
		},
	).Info("migrating ledger state")

	src, err := openBackend(*srcType, *srcDir, *srcDSN)
	if err != nil {
		log.WithError(err).Error("failed to open source")
		return 1
	}
	defer closeBackend(src)
	dst, err := openBackend(*destType, *destDir, *destDSN)
	if err != nil {
		log.WithError(err).Error("failed to open destination")
		return 1
	}
	defer closeBackend(dst)

	snap, err := migrate(src, dst, *dryRun)
	if err != nil {
		log.WithError(err).Error("migration failed")
		return 1
	}
	log.WithFields(
		log.Fields{
			"issuers":      len(snap.Issuers),
			"holders":      len(snap.Holders),
			"certificates": snap.certificateCount(),
		},
	).Info("migration completed")
	return 0
}

func statsCmd(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	var (
		typ = fs.String("type", "", "Storage type (badger, sqlite, mysql, postgres)")
		dir = fs.String("dir", "", "Data directory (for badger and sqlite)")
		dsn = fs.String("dsn", "", "DSN (for mysql/postgres)")
	)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage: clmigrate stats --type=<type> [--dir=<dir>|--dsn=<dsn>]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *typ == "" {
		_, _ = fmt.Fprintln(os.Stderr, "--type is required")
		fs.Usage()
		return 2
	}
	b, err := openBackend(*typ, *dir, *dsn)
	if err != nil {
		log.WithError(err).Error("failed to open backend")
		return 1
	}
	defer closeBackend(b)
	snap, err := readSnapshot(b)
	if err != nil {
		log.WithError(err).Error("failed to read backend")
		return 1
	}
	_, _ = fmt.Printf("deployed:     %t\n", snap.Deployed)
	_, _ = fmt.Printf("owner:        %s\n", snap.Owner.Hex())
	_, _ = fmt.Printf("issuers:      %d\n", len(snap.Issuers))
	_, _ = fmt.Printf("holders:      %d\n", len(snap.Holders))
	_, _ = fmt.Printf("certificates: %d\n", snap.certificateCount())
	return 0
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	var code int
	switch sub {
	case "db":
		code = dbCmd(os.Args[2:])
	case "stats":
		code = statsCmd(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		code = 0
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n\n", sub)
		usage()
		code = 2
	}
	os.Exit(code)
}
