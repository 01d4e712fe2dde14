package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/JoeShih716/go-pool-ledger/pkg/retrier"
)

// Client 封裝 GORM DB 實例
type Client struct {
	db *gorm.DB
}

// NewClient 建立並回傳一個新的 MySQL 客戶端實例 (GORM)
//
// 參數:
//
//	ctx: 連線重試的 context
//	cfg: Config - MySQL 連線配置
//	log: 重試過程的 logger，可為 nil
//
// 回傳值:
//
//	*Client: 封裝後的 MySQL 客戶端
//	error: 若連線失敗則回傳錯誤
func NewClient(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	retries := cfg.ConnectRetries
	if retries <= 0 {
		retries = 10
	}
	interval := cfg.ConnectRetryInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	r := retrier.New(
		retrier.WithMaxRetries(retries-1),
		retrier.WithInitialInterval(interval),
		retrier.WithMaxInterval(interval),
		retrier.WithMultiplier(1),
	)
	attempt := 0
	db, err := retrier.DoWithData(r, ctx, func(ctx context.Context) (*gorm.DB, error) {
		attempt++
		db, err := Open(mysql.Open(cfg.DSN()), cfg.LogLevel)
		if err == nil {
			var rawDB *sql.DB
			if rawDB, err = db.DB(); err == nil {
				if err = rawDB.PingContext(ctx); err == nil {
					return db, nil
				}
			}
		}
		log.Warn("failed to connect to mysql", zap.Int("attempt", attempt), zap.Int("max", retries), zap.Error(err))
		return nil, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "connect to mysql after %d attempts", attempt)
	}

	// 取得底層 sql.DB 物件以設定連線池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.db")
	}

	// 設定連線池參數，避免資料庫連線耗盡
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &Client{db: db}, nil
}

// Open 以指定的 dialector 開啟 gorm，測試時可傳入 sqlmock 連線
//
// 重複主鍵會轉成 gorm.ErrDuplicatedKey
func Open(dialector gorm.Dialector, logLevel string) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		// 寫入一律走明確的 Transaction，不需要預設的單筆事務
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 newLogger(logLevel),
	})
}

// NewClientWithDB 包裝已開啟的 gorm DB
func NewClientWithDB(db *gorm.DB) *Client {
	return &Client{db: db}
}

// DB 回傳底層的 *gorm.DB 實例，供業務邏輯層使用
func (c *Client) DB() *gorm.DB {
	return c.db
}

// SQLDB 回傳底層 *sql.DB，advisory lock 需要獨占連線
func (c *Client) SQLDB() (*sql.DB, error) {
	return c.db.DB()
}

// Close 關閉資料庫連線
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newLogger 根據配置建立 GORM Logger
func newLogger(level string) logger.Interface {
	var logLevel logger.LogLevel
	switch level {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	case "silent":
		logLevel = logger.Silent
	default:
		logLevel = logger.Error // 預設只記錄錯誤
	}

	return logger.Default.LogMode(logLevel)
}
