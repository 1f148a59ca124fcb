package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"fabricstore/internal/auth"
	"fabricstore/internal/blob"
	"fabricstore/internal/config"
	"fabricstore/internal/db"
	"fabricstore/internal/domain"
	"fabricstore/internal/excel"
	"fabricstore/internal/logging"
	"fabricstore/internal/repository"
	"fabricstore/internal/service"
)

type options struct {
	catalogPath string
	actorEmail  string
	dryRun      bool
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	log := logging.New(cfg.LogLevel, "text")

	rows, err := readCatalogRows(opts.catalogPath)
	if err != nil {
		log.Fatalf("read catalog: %v", err)
	}
	inputs := make([]service.ProductInput, 0, len(rows))
	for _, row := range rows {
		inputs = append(inputs, service.ProductInputFromRow(row))
	}
	if opts.dryRun {
		log.Infof("parsed %d catalog rows from %s, nothing written", len(rows), opts.catalogPath)
		return
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	repo := repository.New(pool)
	actor, err := resolveActor(ctx, repo, firstNonEmpty(opts.actorEmail, cfg.DefaultAdminEmail))
	if err != nil {
		log.Fatalf("resolve actor: %v", err)
	}

	blobs, err := blob.NewLocalStore(cfg.UploadsDir)
	if err != nil {
		log.Fatalf("uploads dir error: %v", err)
	}
	svc := service.New(repo, blobs, auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenLifespan()), log, service.Options{})

	result, err := svc.ImportProducts(ctx, actor, inputs)
	if err != nil {
		log.Fatalf("import error: %v", err)
	}
	for _, rowErr := range result.Errors {
		log.Warn(rowErr)
	}
	log.Infof("catalog import complete: rows=%d created=%d updated=%d failed=%d",
		len(rows), result.Created, result.Updated, len(result.Errors))
	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(
		&opts.catalogPath,
		"catalog",
		"../catalog.xlsx",
		"path to the product catalog (.xlsx or .csv)",
	)
	flag.StringVar(
		&opts.actorEmail,
		"actor",
		"",
		"email of the admin or warehouse user recorded as importer (defaults to DEFAULT_ADMIN_EMAIL)",
	)
	flag.BoolVar(
		&opts.dryRun,
		"dry-run",
		false,
		"parse the catalog and stop before touching the database",
	)
	flag.Parse()
	return opts
}

func readCatalogRows(path string) ([]excel.ProductRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	rows, err := excel.ParseProductRows(filepath.Base(path), file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

func resolveActor(ctx context.Context, store repository.Store, email string) (domain.Principal, error) {
	var user *domain.User
	err := store.InTx(ctx, func(tx repository.Tx) error {
		var err error
		user, err = tx.GetUserByEmail(ctx, email)
		return err
	})
	if err != nil {
		return domain.Principal{}, fmt.Errorf("load user %q: %w", email, err)
	}
	if !user.IsActive {
		return domain.Principal{}, fmt.Errorf("user %q is inactive", email)
	}
	return domain.Principal{ID: user.ID, Role: user.Role}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
