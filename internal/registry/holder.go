package registry

import "sync/atomic"

// Holder giữ snapshot hiện hành; reload thay con trỏ nguyên tử,
// người đọc đang giữ snapshot cũ vẫn thấy dữ liệu nhất quán.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder tạo holder với snapshot ban đầu
func NewHolder(s *Snapshot) *Holder {
	h := &Holder{}
	if s == nil {
		s, _ = NewSnapshot(nil)
	}
	h.current.Store(s)
	return h
}

// Load snapshot hiện hành
func (h *Holder) Load() *Snapshot {
	return h.current.Load()
}

// Swap thay snapshot, trả về snapshot cũ
func (h *Holder) Swap(s *Snapshot) *Snapshot {
	return h.current.Swap(s)
}
