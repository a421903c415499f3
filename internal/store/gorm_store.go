package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/registry"
)

const seedBatchSize = 500

// GormStore store quan hệ (PostgreSQL hoặc SQLite) qua GORM
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// tableModels thứ tự bảng khi migrate và seed: cha trước con
func tableModels() []interface{} {
	return []interface{}{
		&models.LegacyProvince{},
		&models.LegacyDistrict{},
		&models.LegacyWard{},
		&models.LegacyStreet{},
		&models.Project{},
		&models.Province{},
		&models.Ward{},
		&models.ConversionMapping{},
		&models.ProvinceMapping{},
		&models.DistrictWardMapping{},
		&models.WardMapping{},
	}
}

// OpenPostgres kết nối PostgreSQL và migrate schema
func OpenPostgres(dsn string, log *zap.Logger) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewGormStore(db, log)
}

// OpenSQLite mở SQLite (file hoặc ":memory:") và migrate schema
func OpenSQLite(dsn string, log *zap.Logger) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return NewGormStore(db, log)
}

// NewGormStore bọc một *gorm.DB đã mở, chạy AutoMigrate
func NewGormStore(db *gorm.DB, log *zap.Logger) (*GormStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(tableModels()...); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("Database migrations completed", zap.String("dialect", db.Dialector.Name()))
	return &GormStore{db: db, logger: log}, nil
}

// DB handle gorm bên dưới
func (s *GormStore) DB() *gorm.DB { return s.db }

// LoadDataset đọc toàn bộ bảng, sắp theo id
func (s *GormStore) LoadDataset(ctx context.Context) (*registry.Dataset, error) {
	start := time.Now()
	db := s.db.WithContext(ctx).Order("id")
	ds := &registry.Dataset{}

	targets := []struct {
		name string
		dest interface{}
	}{
		{"legacy_provinces", &ds.LegacyProvinces},
		{"legacy_districts", &ds.LegacyDistricts},
		{"legacy_wards", &ds.LegacyWards},
		{"legacy_streets", &ds.LegacyStreets},
		{"projects", &ds.Projects},
		{"provinces", &ds.Provinces},
		{"wards", &ds.Wards},
		{"conversion_mappings", &ds.ConversionMappings},
		{"province_mappings", &ds.ProvinceMappings},
		{"district_ward_mappings", &ds.DistrictWardMappings},
		{"ward_mappings", &ds.WardMappings},
	}
	for _, t := range targets {
		if err := db.Find(t.dest).Error; err != nil {
			return nil, fmt.Errorf("lỗi đọc bảng %s: %w", t.name, err)
		}
	}

	s.logger.Info("Đã đọc dataset từ database",
		zap.Any("counts", ds.Counts()),
		zap.Duration("duration", time.Since(start)))
	return ds, nil
}

// Seed xóa dữ liệu cũ và ghi dataset trong một giao dịch
func (s *GormStore) Seed(ctx context.Context, ds *registry.Dataset) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		// xóa con trước cha
		mods := tableModels()
		for i := len(mods) - 1; i >= 0; i-- {
			if err := all.Delete(mods[i]).Error; err != nil {
				return fmt.Errorf("lỗi xóa dữ liệu cũ: %w", err)
			}
		}

		inserts := []struct {
			name string
			rows interface{}
			n    int
		}{
			{"legacy_provinces", ds.LegacyProvinces, len(ds.LegacyProvinces)},
			{"legacy_districts", ds.LegacyDistricts, len(ds.LegacyDistricts)},
			{"legacy_wards", ds.LegacyWards, len(ds.LegacyWards)},
			{"legacy_streets", ds.LegacyStreets, len(ds.LegacyStreets)},
			{"projects", ds.Projects, len(ds.Projects)},
			{"provinces", ds.Provinces, len(ds.Provinces)},
			{"wards", ds.Wards, len(ds.Wards)},
			{"conversion_mappings", ds.ConversionMappings, len(ds.ConversionMappings)},
			{"province_mappings", ds.ProvinceMappings, len(ds.ProvinceMappings)},
			{"district_ward_mappings", ds.DistrictWardMappings, len(ds.DistrictWardMappings)},
			{"ward_mappings", ds.WardMappings, len(ds.WardMappings)},
		}
		for _, in := range inserts {
			if in.n == 0 {
				continue
			}
			if err := tx.CreateInBatches(in.rows, seedBatchSize).Error; err != nil {
				return fmt.Errorf("lỗi ghi bảng %s: %w", in.name, err)
			}
			s.logger.Debug("Đã ghi bảng", zap.String("table", in.name), zap.Int("rows", in.n))
		}
		return nil
	})
}

// ApplyCorrection vô hiệu hóa và chèn mapping trong cùng một giao dịch.
// Nếu số dòng được vô hiệu hóa khác số id yêu cầu thì rollback với ErrStaleCorrection.
func (s *GormStore) ApplyCorrection(ctx context.Context, c registry.Correction) ([]models.ConversionMapping, error) {
	var inserted []models.ConversionMapping
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		if len(c.Deactivate) > 0 {
			res := tx.Model(&models.ConversionMapping{}).
				Where("id IN ? AND is_active = ?", c.Deactivate, true).
				Updates(map[string]interface{}{"is_active": false, "deactivated_at": now})
			if res.Error != nil {
				return fmt.Errorf("lỗi vô hiệu hóa mapping: %w", res.Error)
			}
			if res.RowsAffected != int64(len(c.Deactivate)) {
				return fmt.Errorf("%w: vô hiệu hóa %d/%d mapping", ErrStaleCorrection, res.RowsAffected, len(c.Deactivate))
			}
		}
		if len(c.Insert) == 0 {
			return nil
		}

		var maxID int64
		if err := tx.Model(&models.ConversionMapping{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
			return fmt.Errorf("lỗi đọc id lớn nhất: %w", err)
		}
		rows := PrepareInserts(c.Insert, maxID, now)
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("lỗi chèn mapping: %w", err)
		}
		inserted = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Đã áp dụng correction",
		zap.Int("deactivated", len(c.Deactivate)),
		zap.Int("inserted", len(inserted)),
		zap.String("note", c.Note))
	return inserted, nil
}

// Close đóng kết nối
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
