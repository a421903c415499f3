package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/registry"
)

// MongoStore lưu mỗi bảng thành một collection, _id là id của bản ghi.
// ApplyCorrection dùng transaction nên MongoDB phải chạy replica set.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// OpenMongo kết nối MongoDB, ping và tạo index
func OpenMongo(ctx context.Context, uri, database string, logger *zap.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Connecting to MongoDB", zap.String("database", database))

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("không thể kết nối MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("không thể ping MongoDB: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database), logger: logger}
	s.ensureIndexes(ctx)
	logger.Info("Successfully connected to MongoDB")
	return s, nil
}

func (s *MongoStore) collection(table string) *mongo.Collection {
	return s.db.Collection(table)
}

func (s *MongoStore) ensureIndexes(ctx context.Context) {
	indexes := map[string][]mongo.IndexModel{
		models.LegacyProvince{}.TableName(): {
			{Keys: bson.D{bson.E{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		models.LegacyDistrict{}.TableName(): {
			{Keys: bson.D{bson.E{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{bson.E{Key: "province_id", Value: 1}}},
		},
		models.LegacyWard{}.TableName(): {
			{Keys: bson.D{bson.E{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{bson.E{Key: "district_id", Value: 1}}},
		},
		models.Province{}.TableName(): {
			{Keys: bson.D{bson.E{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{bson.E{Key: "parent_province_id", Value: 1}}},
		},
		models.Ward{}.TableName(): {
			{Keys: bson.D{bson.E{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{bson.E{Key: "province_id", Value: 1}}},
		},
		models.ConversionMapping{}.TableName(): {
			{Keys: bson.D{
				bson.E{Key: "old_province_id", Value: 1},
				bson.E{Key: "old_district_id", Value: 1},
				bson.E{Key: "old_ward_id", Value: 1},
			}},
			{Keys: bson.D{
				bson.E{Key: "new_province_code", Value: 1},
				bson.E{Key: "new_ward_code", Value: 1},
			}},
			{Keys: bson.D{bson.E{Key: "is_active", Value: 1}}},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	for table, idx := range indexes {
		if _, err := s.collection(table).Indexes().CreateMany(ctx, idx); err != nil {
			s.logger.Warn("Không thể tạo indexes", zap.String("collection", table), zap.Error(err))
		}
	}
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, out *[]T) error {
	cur, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{bson.E{Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}

func insertAll[T any](ctx context.Context, coll *mongo.Collection, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	docs := make([]interface{}, len(rows))
	for i := range rows {
		docs[i] = rows[i]
	}
	_, err := coll.InsertMany(ctx, docs)
	return err
}

// LoadDataset đọc toàn bộ collection, sắp theo _id
func (s *MongoStore) LoadDataset(ctx context.Context) (*registry.Dataset, error) {
	start := time.Now()
	ds := &registry.Dataset{}

	steps := []struct {
		table string
		load  func() error
	}{
		{"legacy_provinces", func() error { return findAll(ctx, s.collection("legacy_provinces"), &ds.LegacyProvinces) }},
		{"legacy_districts", func() error { return findAll(ctx, s.collection("legacy_districts"), &ds.LegacyDistricts) }},
		{"legacy_wards", func() error { return findAll(ctx, s.collection("legacy_wards"), &ds.LegacyWards) }},
		{"legacy_streets", func() error { return findAll(ctx, s.collection("legacy_streets"), &ds.LegacyStreets) }},
		{"projects", func() error { return findAll(ctx, s.collection("projects"), &ds.Projects) }},
		{"provinces", func() error { return findAll(ctx, s.collection("provinces"), &ds.Provinces) }},
		{"wards", func() error { return findAll(ctx, s.collection("wards"), &ds.Wards) }},
		{"conversion_mappings", func() error { return findAll(ctx, s.collection("conversion_mappings"), &ds.ConversionMappings) }},
		{"province_mappings", func() error { return findAll(ctx, s.collection("province_mappings"), &ds.ProvinceMappings) }},
		{"district_ward_mappings", func() error {
			return findAll(ctx, s.collection("district_ward_mappings"), &ds.DistrictWardMappings)
		}},
		{"ward_mappings", func() error { return findAll(ctx, s.collection("ward_mappings"), &ds.WardMappings) }},
	}
	for _, step := range steps {
		if err := step.load(); err != nil {
			return nil, fmt.Errorf("lỗi đọc collection %s: %w", step.table, err)
		}
	}

	s.logger.Info("Đã đọc dataset từ MongoDB",
		zap.Any("counts", ds.Counts()),
		zap.Duration("duration", time.Since(start)))
	return ds, nil
}

// Seed xóa và ghi lại từng collection
func (s *MongoStore) Seed(ctx context.Context, ds *registry.Dataset) error {
	steps := []struct {
		table string
		write func(coll *mongo.Collection) error
	}{
		{"legacy_provinces", func(c *mongo.Collection) error { return insertAll(ctx, c, ds.LegacyProvinces) }},
		{"legacy_districts", func(c *mongo.Collection) error { return insertAll(ctx, c, ds.LegacyDistricts) }},
		{"legacy_wards", func(c *mongo.Collection) error { return insertAll(ctx, c, ds.LegacyWards) }},
		{"legacy_streets", func(c *mongo.Collection) error { return insertAll(ctx, c, ds.LegacyStreets) }},
		{"projects", func(c *mongo.Collection) error { return insertAll(ctx, c, ds.Projects) }},
		{"provinces", func(c *mongo.Collection) error { return insertAll(ctx, c, ds.Provinces) }},
		{"wards", func(c *mongo.Collection) error { return insertAll(ctx, c, ds.Wards) }},
		{"conversion_mappings", func(c *mongo.Collection) error { return insertAll(ctx, c, ds.ConversionMappings) }},
		{"province_mappings", func(c *mongo.Collection) error { return insertAll(ctx, c, ds.ProvinceMappings) }},
		{"district_ward_mappings", func(c *mongo.Collection) error { return insertAll(ctx, c, ds.DistrictWardMappings) }},
		{"ward_mappings", func(c *mongo.Collection) error { return insertAll(ctx, c, ds.WardMappings) }},
	}
	for _, step := range steps {
		coll := s.collection(step.table)
		res, err := coll.DeleteMany(ctx, bson.M{})
		if err != nil {
			return fmt.Errorf("lỗi xóa dữ liệu cũ %s: %w", step.table, err)
		}
		if err := step.write(coll); err != nil {
			return fmt.Errorf("lỗi ghi collection %s: %w", step.table, err)
		}
		s.logger.Debug("Đã seed collection", zap.String("collection", step.table), zap.Int64("deleted", res.DeletedCount))
	}
	return nil
}

// ApplyCorrection vô hiệu hóa và chèn mapping trong một transaction
func (s *MongoStore) ApplyCorrection(ctx context.Context, c registry.Correction) ([]models.ConversionMapping, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("lỗi tạo session: %w", err)
	}
	defer session.EndSession(ctx)

	coll := s.collection(models.ConversionMapping{}.TableName())
	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		now := time.Now().UTC()
		if len(c.Deactivate) > 0 {
			res, err := coll.UpdateMany(sc,
				bson.M{"_id": bson.M{"$in": c.Deactivate}, "is_active": true},
				bson.M{"$set": bson.M{"is_active": false, "deactivated_at": now}})
			if err != nil {
				return nil, fmt.Errorf("lỗi vô hiệu hóa mapping: %w", err)
			}
			if res.ModifiedCount != int64(len(c.Deactivate)) {
				return nil, fmt.Errorf("%w: vô hiệu hóa %d/%d mapping", ErrStaleCorrection, res.ModifiedCount, len(c.Deactivate))
			}
		}
		if len(c.Insert) == 0 {
			return []models.ConversionMapping{}, nil
		}

		var last models.ConversionMapping
		var maxID int64
		err := coll.FindOne(sc, bson.M{}, options.FindOne().SetSort(bson.D{bson.E{Key: "_id", Value: -1}})).Decode(&last)
		switch {
		case err == nil:
			maxID = last.ID
		case errors.Is(err, mongo.ErrNoDocuments):
		default:
			return nil, fmt.Errorf("lỗi đọc id lớn nhất: %w", err)
		}

		rows := PrepareInserts(c.Insert, maxID, now)
		if err := insertAll(sc, coll, rows); err != nil {
			return nil, fmt.Errorf("lỗi chèn mapping: %w", err)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}

	inserted := result.([]models.ConversionMapping)
	s.logger.Info("Đã áp dụng correction",
		zap.Int("deactivated", len(c.Deactivate)),
		zap.Int("inserted", len(inserted)),
		zap.String("note", c.Note))
	return inserted, nil
}

// Close ngắt kết nối
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
