// Command rehash-passwords migrates legacy rows whose password_hash column
// holds a plaintext password.  Each such value is replaced by its bcrypt
// hash, only if the row was not changed in the meantime.  Run it once
// before serving traffic; the server never compares plaintext.
package main

import (
    "context"
    "errors"
    "flag"
    "log"
    "time"

    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/config"
    "github.com/iliyamo/matrimony-api/internal/database"
    "github.com/iliyamo/matrimony-api/internal/logger"
    "github.com/iliyamo/matrimony-api/internal/repository"
    "github.com/iliyamo/matrimony-api/internal/utils"
)

func main() {
    dryRun := flag.Bool("dry-run", false, "only report the rows that would be migrated")
    timeout := flag.Duration("timeout", 30*time.Minute, "overall time limit")
    flag.Parse()

    cfg := config.Load()
    lg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
    if err != nil {
        log.Fatalf("logger: %v", err)
    }
    defer func() { _ = lg.Sync() }()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.PoolConfig{MaxOpen: 4})
    if err != nil {
        lg.Fatal("database connection failed", zap.Error(err))
    }
    defer db.Close()

    ctx, cancel := context.WithTimeout(context.Background(), *timeout)
    defer cancel()

    users := repository.NewUserRepo(db)
    hasher := utils.NewHasher(cfg.BcryptCost, cfg.HashWorkers)

    migrated, skipped, err := run(ctx, users, hasher, *dryRun, lg)
    if err != nil {
        lg.Fatal("migration aborted", zap.Error(err), zap.Int("migrated", migrated))
    }
    lg.Info("migration finished", zap.Int("migrated", migrated), zap.Int("skipped", skipped), zap.Bool("dry_run", *dryRun))
}

type legacyStore interface {
    ListLegacyPasswords(ctx context.Context, isHashed func(string) bool) ([]repository.LegacyPassword, error)
    ReplaceLegacyPassword(ctx context.Context, id uint64, stored, hash string) (bool, error)
}

func run(ctx context.Context, users legacyStore, hasher *utils.Hasher, dryRun bool, lg *zap.Logger) (migrated, skipped int, err error) {
    rows, err := users.ListLegacyPasswords(ctx, utils.IsHashed)
    if err != nil {
        return 0, 0, err
    }
    lg.Info("legacy passwords found", zap.Int("count", len(rows)))
    for _, row := range rows {
        if dryRun {
            lg.Info("would migrate", zap.Uint64("user_id", row.ID))
            continue
        }
        hash, err := hasher.Hash(ctx, row.Stored)
        if errors.Is(err, utils.ErrHashing) {
            // e.g. values longer than bcrypt's 72 bytes
            skipped++
            lg.Warn("stored value cannot be hashed, skipped", zap.Uint64("user_id", row.ID), zap.Error(err))
            continue
        }
        if err != nil {
            return migrated, skipped, err
        }
        ok, err := users.ReplaceLegacyPassword(ctx, row.ID, row.Stored, hash)
        if err != nil {
            return migrated, skipped, err
        }
        if !ok {
            skipped++
            lg.Warn("row changed since it was read, skipped", zap.Uint64("user_id", row.ID))
            continue
        }
        migrated++
        lg.Info("password migrated", zap.Uint64("user_id", row.ID))
    }
    return migrated, skipped, nil
}
