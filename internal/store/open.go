package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Open mở store theo driver trong cấu hình
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverPostgres:
		s, err = OpenPostgres(cfg.DSN, logger)
	case DriverSQLite, "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "address.db"
		}
		s, err = OpenSQLite(dsn, logger)
	case DriverMongo:
		db := cfg.MongoDatabase
		if db == "" {
			db = "address_converter"
		}
		s, err = OpenMongo(ctx, cfg.MongoURI, db, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
