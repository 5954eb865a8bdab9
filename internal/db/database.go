package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eggmart/eggmart/internal/models"
)

// LockForUpdate takes a row lock on postgres so check-then-act sequences
// inside a transaction serialize on the row. sqlite serializes writers on its
// own and rejects the FOR UPDATE syntax.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

var (
	once      sync.Once
	shared    *gorm.DB
	sharedErr error
)

func configurePool(sqlDB *sql.DB) {
	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

func Open(ctx context.Context, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt: true,
		NowFunc:     func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	configurePool(sqlDB)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.ProductImage{},
		&models.Sale{},
		&models.CartItem{},
		&models.Favorite{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderRating{},
		&models.Notification{},
	)
}

// Shared opens the process-wide pool on first use. Subsequent calls return
// the same handle (or the original open error).
func Shared(ctx context.Context, dsn string) (*gorm.DB, error) {
	once.Do(func() {
		shared, sharedErr = Open(ctx, dsn)
		if sharedErr == nil {
			sharedErr = Migrate(shared)
		}
	})
	return shared, sharedErr
}

func Close() error {
	if shared == nil {
		return nil
	}
	sqlDB, err := shared.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
