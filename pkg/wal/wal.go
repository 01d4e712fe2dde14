// Package wal 以 gowal 分段日誌保存 JSON 紀錄，重啟時依序重播
package wal

import (
	"encoding/json"
	"io/fs"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
)

// rwxr-xr-x: 日誌目錄權限
const DirMode fs.FileMode = 0755

// Config 日誌設定
type Config struct {
	Dir string `yaml:"dir"`
	// SegmentThreshold: 每個分段的紀錄數
	SegmentThreshold int `yaml:"segment_threshold"`
	// MaxSegments: 保留的分段數，超過會刪除最舊的分段，帳本日誌必須夠大
	MaxSegments int `yaml:"max_segments"`
	// NoSync: 關閉每次寫入的 fsync (僅測試用)
	NoSync bool `yaml:"no_sync"`
}

func (c *Config) withDefaults() {
	if c.SegmentThreshold <= 0 {
		c.SegmentThreshold = 10000
	}
	if c.MaxSegments <= 0 {
		c.MaxSegments = 1 << 20
	}
}

type WAL struct {
	wal *gowal.Wal
	mu  sync.Mutex
}

// NewWAL 開啟或建立日誌目錄
func NewWAL(cfg Config) (*WAL, error) {
	if cfg.Dir == "" {
		return nil, errors.New("wal dir is required")
	}
	cfg.withDefaults()
	if err := os.MkdirAll(cfg.Dir, DirMode); err != nil {
		return nil, errors.Wrapf(err, "ensure wal dir %s", cfg.Dir)
	}
	w, err := gowal.NewWAL(gowal.Config{
		Dir:              cfg.Dir,
		Prefix:           "ledger_",
		SegmentThreshold: cfg.SegmentThreshold,
		MaxSegments:      cfg.MaxSegments,
		IsInSyncDiskMode: !cfg.NoSync,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open wal")
	}
	return &WAL{wal: w}, nil
}

// Write 寫入一筆資料，回傳後即已落地
//
// 參數:
//
//	key: 紀錄鍵值，重播時原樣交給 callback
//	v: 以 JSON 編碼的內容
func (w *WAL) Write(key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal wal record")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.wal.Write(w.wal.CurrentIndex()+1, key, payload); err != nil {
		return errors.Wrapf(err, "write wal record %s", key)
	}
	return nil
}

// CurrentIndex 最後一筆紀錄的序號
func (w *WAL) CurrentIndex() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wal.CurrentIndex()
}

// ReadAll 依寫入順序重播所有資料
// callback 回傳 error 會中止重播
func (w *WAL) ReadAll(callback func(key string, raw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var first error
	for msg := range w.wal.Iterator() {
		// 出錯後仍要把 iterator 讀完
		if first != nil {
			continue
		}
		first = callback(msg.Key, msg.Value)
	}
	return first
}

// Close 關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wal.Close()
}
