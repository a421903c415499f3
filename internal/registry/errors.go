package registry

import "errors"

var (
	// ErrUnitNotFound không tìm thấy đơn vị hành chính
	ErrUnitNotFound = errors.New("unit not found")
	// ErrInvalidDataset dữ liệu tham chiếu vi phạm ràng buộc
	ErrInvalidDataset = errors.New("invalid dataset")
	// ErrInvalidCorrection bản sửa mapping không hợp lệ
	ErrInvalidCorrection = errors.New("invalid correction")
)
