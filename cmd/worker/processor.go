package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/address-converter/app/services"
	"github.com/address-converter/internal/conversion"
)

// batchFunc chuyển một lô khóa cũ
type batchFunc func(ctx context.Context, keys []conversion.OldAddressKey, minAccuracy *int) (*services.BatchResult, error)

// Summary thống kê một lần chạy worker
type Summary struct {
	Lines         int `json:"lines"`
	Succeeded     int `json:"succeeded"`
	Failed        int `json:"failed"`
	LowConfidence int `json:"low_confidence"`
	Batches       int `json:"batches"`
}

// processor đọc NDJSON khóa cũ, chuyển theo lô và ghi NDJSON kết quả theo đúng thứ tự dòng
type processor struct {
	convert     batchFunc
	chunkSize   int
	minAccuracy *int
	logger      *zap.Logger
}

type pending struct {
	line int
	key  conversion.OldAddressKey
}

// Run xử lý toàn bộ r. Dòng không parse được ghi ra lỗi INVALID_REQUEST, không dừng worker.
func (p *processor) Run(ctx context.Context, r io.Reader, w io.Writer) (Summary, error) {
	var sum Summary
	enc := json.NewEncoder(w)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var buf []pending
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		keys := make([]conversion.OldAddressKey, len(buf))
		for i, pd := range buf {
			keys[i] = pd.key
		}
		res, err := p.convert(ctx, keys, p.minAccuracy)
		if err != nil {
			return fmt.Errorf("lỗi chuyển lô tại dòng %d: %w", buf[0].line, err)
		}
		sum.Batches++
		sum.Succeeded += res.Succeeded
		sum.Failed += res.Failed
		sum.LowConfidence += res.LowConfidence
		for i, item := range res.Items {
			item.Index = buf[i].line
			if err := enc.Encode(item); err != nil {
				return fmt.Errorf("lỗi ghi kết quả: %w", err)
			}
		}
		buf = buf[:0]
		return nil
	}

	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		line++
		sum.Lines++

		var key conversion.OldAddressKey
		if err := json.Unmarshal([]byte(text), &key); err != nil {
			// giữ thứ tự: ghi các dòng đang chờ trước
			if err := flush(); err != nil {
				return sum, err
			}
			sum.Failed++
			p.logger.Debug("Dòng không hợp lệ", zap.Int("line", line), zap.Error(err))
			if err := enc.Encode(conversion.BatchItem{
				Index: line,
				Error: &conversion.ItemError{Code: conversion.ErrCodeInvalidRequest, Message: err.Error()},
			}); err != nil {
				return sum, fmt.Errorf("lỗi ghi kết quả: %w", err)
			}
			continue
		}

		buf = append(buf, pending{line: line, key: key})
		if len(buf) >= p.chunkSize {
			if err := flush(); err != nil {
				return sum, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("lỗi đọc input: %w", err)
	}
	return sum, flush()
}
