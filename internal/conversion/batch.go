package conversion

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrorCode mã lỗi của từng phần tử trong batch
type ErrorCode string

const (
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeNotFound       ErrorCode = "CONVERSION_NOT_FOUND"
	ErrCodeTimeout        ErrorCode = "TIMEOUT"
	ErrCodeCancelled      ErrorCode = "CANCELLED"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// ItemError lỗi của một phần tử
type ItemError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *ItemError) Error() string { return string(e.Code) + ": " + e.Message }

// ClassifyError gắn mã cho lỗi của một lần chuyển đổi
func ClassifyError(err error) *ItemError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidKey):
		return &ItemError{Code: ErrCodeInvalidRequest, Message: err.Error()}
	case errors.Is(err, ErrConversionNotFound):
		return &ItemError{Code: ErrCodeNotFound, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &ItemError{Code: ErrCodeTimeout, Message: err.Error()}
	case errors.Is(err, context.Canceled):
		return &ItemError{Code: ErrCodeCancelled, Message: err.Error()}
	}
	return &ItemError{Code: ErrCodeInternal, Message: err.Error()}
}

// BatchOptions cấu hình batch
type BatchOptions struct {
	Workers     int
	ItemTimeout time.Duration
	MinAccuracy int
}

// BatchItem kết quả của phần tử thứ Index, song song với đầu vào
type BatchItem struct {
	Index  int           `json:"index"`
	Key    OldAddressKey `json:"key"`
	Result *Forward      `json:"result,omitempty"`
	Error  *ItemError    `json:"error,omitempty"`
}

// ForwardFunc hàm chuyển xuôi cho một phần tử
type ForwardFunc func(ctx context.Context, key OldAddressKey, minAccuracy int) (*Forward, error)

// RunBatch chuyển đổi độc lập từng khóa với số worker giới hạn.
// Lỗi của một phần tử không làm hỏng các phần tử khác.
func RunBatch(ctx context.Context, keys []OldAddressKey, opts BatchOptions, fn ForwardFunc) []BatchItem {
	items := make([]BatchItem, len(keys))
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, key := range keys {
		i, key := i, key
		items[i] = BatchItem{Index: i, Key: key}
		if err := key.Validate(); err != nil {
			items[i].Error = ClassifyError(err)
			continue
		}
		g.Go(func() error {
			itemCtx, cancel := ctx, context.CancelFunc(func() {})
			if opts.ItemTimeout > 0 {
				itemCtx, cancel = context.WithTimeout(ctx, opts.ItemTimeout)
			}
			defer cancel()

			res, err := fn(itemCtx, key, opts.MinAccuracy)
			if err != nil {
				items[i].Error = ClassifyError(err)
				return nil
			}
			items[i].Result = res
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// ConvertBatch chuyển xuôi nhiều địa chỉ cũ
func (r *Resolver) ConvertBatch(ctx context.Context, keys []OldAddressKey, opts BatchOptions) []BatchItem {
	return RunBatch(ctx, keys, opts, r.ConvertForward)
}
