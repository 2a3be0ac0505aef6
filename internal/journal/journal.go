// Package journal 维护一份本地下单流水，仅作审计用途。订单的权威
// 记录始终在券商网关侧，流水写入失败不影响交易调用本身。
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"futu-trader/internal/config"
	"futu-trader/internal/trading"
)

// Journal 封装 SQLite 流水库。
type Journal struct {
	db     *sql.DB
	logger *zap.Logger
}

// Entry 为一条流水记录。
type Entry struct {
	ID         int64
	OccurredAt string
	Action     string
	OrderID    uint64
	Code       string
	Qty        int64
	Price      float64
	Side       string
	Kind       string
	AccID      uint64
	Env        string
}

const (
	ActionPlace  = "PLACE"
	ActionCancel = "CANCEL"
)

// Open 根据配置初始化流水库。
func Open(cfg config.JournalConfig, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := cfg.Path
	if cfg.InMemory {
		dsn = ":memory:"
	} else {
		if err := ensureDir(filepath.Dir(cfg.Path)); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on", dsn))
	if err != nil {
		return nil, fmt.Errorf("journal: 打开 SQLite 数据库失败: %w", err)
	}

	if cfg.InMemory {
		// :memory: 库按连接隔离，第二个连接会打开一个没有表结构的空库
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	} else {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("journal: 设置 SQLite WAL 模式失败: %w", err)
	}

	j := &Journal{db: conn, logger: logger}
	if err := j.initSchema(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return j, nil
}

func (j *Journal) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS order_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			occurred_at TEXT NOT NULL,
			action TEXT NOT NULL,
			order_id INTEGER NOT NULL,
			code TEXT,
			qty INTEGER,
			price REAL,
			side TEXT,
			kind TEXT,
			acc_id INTEGER NOT NULL,
			env TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_order_audit_time ON order_audit(occurred_at);`,
	}

	for _, stmt := range schema {
		if _, err := j.db.Exec(stmt); err != nil {
			return fmt.Errorf("journal: 初始化表结构失败: %w", err)
		}
	}

	return nil
}

// RecordPlace 记录一笔已提交的订单。
func (j *Journal) RecordPlace(ctx context.Context, accID uint64, env string, res trading.PlaceOrderResult) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO order_audit (occurred_at, action, order_id, code, qty, price, side, kind, acc_id, env)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		ActionPlace, res.OrderID, res.Code, res.Qty, res.Price,
		string(res.Side), string(res.Kind), accID, env,
	)
	if err != nil {
		return fmt.Errorf("journal: 写入下单流水失败: %w", err)
	}
	return nil
}

// RecordCancel 记录一笔已提交的撤单。
func (j *Journal) RecordCancel(ctx context.Context, accID uint64, env string, orderID uint64) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO order_audit (occurred_at, action, order_id, acc_id, env)
		 VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		ActionCancel, orderID, accID, env,
	)
	if err != nil {
		return fmt.Errorf("journal: 写入撤单流水失败: %w", err)
	}
	return nil
}

// Recent 返回最近的流水记录，按时间倒序。
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, occurred_at, action, order_id,
			COALESCE(code, ''), COALESCE(qty, 0), COALESCE(price, 0),
			COALESCE(side, ''), COALESCE(kind, ''), acc_id, env
		 FROM order_audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: 查询流水失败: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.Action, &e.OrderID,
			&e.Code, &e.Qty, &e.Price, &e.Side, &e.Kind, &e.AccID, &e.Env); err != nil {
			return nil, fmt.Errorf("journal: 读取流水失败: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Close 关闭数据库连接。
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("journal: 创建目录 %q 失败: %w", path, err)
	}
	return nil
}
