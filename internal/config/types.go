package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	OpenD   OpenDConfig   `mapstructure:"opend"`
	Trading TradingConfig `mapstructure:"trading"`
	Journal JournalConfig `mapstructure:"journal"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// OpenDConfig 描述 FutuOpenD 网关的连接信息。
type OpenDConfig struct {
	Host                 string        `mapstructure:"host"`
	Port                 int           `mapstructure:"port"`
	ConnTimeout          time.Duration `mapstructure:"conn_timeout"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout"`
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second"`
}

// TradingConfig 描述交易环境及账户参数。
type TradingConfig struct {
	Env            string `mapstructure:"env"`
	Market         string `mapstructure:"market"`
	UnlockPassword string `mapstructure:"unlock_password"`
	AccountID      string `mapstructure:"account_id"`
}

// JournalConfig 管理本地下单流水数据库。
type JournalConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

var validEnvs = map[string]struct{}{
	"SIMULATE": {},
	"REAL":     {},
}

var validMarkets = map[string]struct{}{
	"HK": {},
	"US": {},
	"SH": {},
	"SZ": {},
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.OpenD.Host == "" {
		err = multierr.Append(err, errors.New("opend.host 不能为空"))
	}
	if c.OpenD.Port <= 0 || c.OpenD.Port > 65535 {
		err = multierr.Append(err, errors.New("opend.port 必须位于(0,65535]"))
	}
	if c.OpenD.ConnTimeout <= 0 {
		err = multierr.Append(err, errors.New("opend.conn_timeout 必须大于0"))
	}
	if c.OpenD.RequestTimeout <= 0 {
		err = multierr.Append(err, errors.New("opend.request_timeout 必须大于0"))
	}
	if c.OpenD.MaxRequestsPerSecond <= 0 {
		err = multierr.Append(err, errors.New("opend.max_requests_per_second 必须大于0"))
	}
	if _, ok := validEnvs[c.Trading.Env]; !ok {
		err = multierr.Append(err, fmt.Errorf("trading.env 必须为 SIMULATE 或 REAL，当前为 %q", c.Trading.Env))
	}
	if _, ok := validMarkets[c.Trading.Market]; !ok {
		err = multierr.Append(err, fmt.Errorf("trading.market 必须为 HK/US/SH/SZ 之一，当前为 %q", c.Trading.Market))
	}
	if c.Journal.Enabled {
		if c.Journal.Path == "" && !c.Journal.InMemory {
			err = multierr.Append(err, errors.New("journal.path 不能为空"))
		}
		if c.Journal.MaxOpenConns <= 0 {
			err = multierr.Append(err, errors.New("journal.max_open_conns 必须大于0"))
		}
		if c.Journal.MaxIdleConns < 0 {
			err = multierr.Append(err, errors.New("journal.max_idle_conns 不能为负"))
		}
		if c.Journal.ConnMaxLifetime < 0 {
			err = multierr.Append(err, errors.New("journal.conn_max_lifetime 不能为负"))
		}
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
