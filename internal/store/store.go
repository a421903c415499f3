// Package store đọc/ghi sổ đăng ký và kho mapping trên cơ sở dữ liệu
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/registry"
)

var (
	// ErrUnknownDriver driver không được hỗ trợ
	ErrUnknownDriver = errors.New("unknown store driver")
	// ErrStaleCorrection mapping cần vô hiệu hóa đã bị thay đổi bởi lần ghi khác
	ErrStaleCorrection = errors.New("stale correction")
)

// Driver names
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Store nguồn dữ liệu của snapshot
type Store interface {
	// LoadDataset đọc toàn bộ dữ liệu tham chiếu, kể cả bản ghi đã ngừng hoạt động
	LoadDataset(ctx context.Context) (*registry.Dataset, error)
	// Seed thay thế toàn bộ dữ liệu bằng dataset
	Seed(ctx context.Context, ds *registry.Dataset) error
	// ApplyCorrection vô hiệu hóa và chèn mapping trong một giao dịch, trả về các dòng đã chèn
	ApplyCorrection(ctx context.Context, c registry.Correction) ([]models.ConversionMapping, error)
	Close() error
}

// Config cấu hình kết nối store
type Config struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DSN           string `yaml:"dsn" mapstructure:"dsn"`
	MongoURI      string `yaml:"mongo_uri" mapstructure:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database" mapstructure:"mongo_database"`
}

// LoadDatasetFile đọc dataset JSON (định dạng của registry.Dataset)
func LoadDatasetFile(path string) (*registry.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lỗi mở file dataset: %w", err)
	}
	defer f.Close()

	var ds registry.Dataset
	if err := json.NewDecoder(f).Decode(&ds); err != nil {
		return nil, fmt.Errorf("lỗi đọc file dataset %s: %w", path, err)
	}
	return &ds, nil
}

// PrepareInserts gán id (MAX(id)+1 trở đi) cho mapping chưa có id, đánh dấu hoạt động.
// maxID là id lớn nhất hiện có trong store.
func PrepareInserts(rows []models.ConversionMapping, maxID int64, now time.Time) []models.ConversionMapping {
	out := make([]models.ConversionMapping, len(rows))
	for _, m := range rows {
		if m.ID > maxID {
			maxID = m.ID
		}
	}
	for i, m := range rows {
		if m.ID == 0 {
			maxID++
			m.ID = maxID
		}
		m.IsActive = true
		m.DeactivatedAt = nil
		m.CreatedAt = now
		out[i] = m
	}
	return out
}
