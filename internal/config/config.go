package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-bank-core/pkg/logger"
	"github.com/JoeShih716/go-bank-core/pkg/mysql"
)

// EnvConfigPath 覆寫設定檔路徑的環境變數
const EnvConfigPath = "BANK_CONFIG"

// DefaultPath 預設設定檔路徑
const DefaultPath = "config/config.yaml"

// LedgerEngine 帳本實作
type LedgerEngine string

const (
	// LedgerMySQL 每次操作都走資料庫交易與 FOR UPDATE
	LedgerMySQL LedgerEngine = "mysql"
	// LedgerMutex 記憶體帳本 + 每帳戶一把鎖 + WAL
	LedgerMutex LedgerEngine = "mutex"
	// LedgerLMAX 記憶體帳本 + 單一 goroutine + WAL
	LedgerLMAX LedgerEngine = "lmax"
)

// NotifySink 通知輸出
type NotifySink string

const (
	NotifyLog   NotifySink = "log"
	NotifyRedis NotifySink = "redis"
	NotifyBoth  NotifySink = "both"
)

type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Ledger   LedgerConfig  `yaml:"ledger"`
	Bank     BankConfig    `yaml:"bank"`
	MySQL    mysql.Config  `yaml:"mysql"`
	Redis    RedisConfig   `yaml:"redis"`
	Notify   NotifyConfig  `yaml:"notify"`
	Log      logger.Config `yaml:"log"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Shutdown time.Duration `yaml:"shutdown_timeout"`
}

type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

type LedgerConfig struct {
	Engine  LedgerEngine `yaml:"engine"`
	WALPath string       `yaml:"wal_path"`
}

type BankConfig struct {
	// Timezone 計算每日上限「同一天」的時區 (IANA 名稱)
	Timezone string `yaml:"timezone"`
	// DailyLimit 每日上限，空字串使用預設值
	DailyLimit string `yaml:"daily_limit"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type NotifyConfig struct {
	Sink    NotifySink    `yaml:"sink"`
	Channel string        `yaml:"channel"`
	Timeout time.Duration `yaml:"timeout"`
}

type MetricsConfig struct {
	// Addr 空字串代表不開 /metrics
	Addr string `yaml:"addr"`
}

// Path 回傳設定檔路徑，BANK_CONFIG 優先
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load 讀取 yaml 設定並補上預設值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 yaml 內容並補上預設值
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Ledger.Engine == "" {
		c.Ledger.Engine = LedgerMutex
	}
	if c.Ledger.WALPath == "" {
		c.Ledger.WALPath = "data/wal.log"
	}
	if c.Bank.Timezone == "" {
		c.Bank.Timezone = "UTC"
	}
	if c.Notify.Sink == "" {
		c.Notify.Sink = NotifyLog
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Shutdown == 0 {
		c.Shutdown = 10 * time.Second
	}
	c.MySQL = c.MySQL.WithDefaults()
	def := logger.DefaultConfig()
	if c.Log.Level == "" {
		c.Log.Level = def.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Format
	}
	if c.Log.Output == "" {
		c.Log.Output = def.Output
	}
}

// Validate 檢查列舉值與時區
func (c *Config) Validate() error {
	var errs []error
	switch c.Ledger.Engine {
	case LedgerMySQL, LedgerMutex, LedgerLMAX:
	default:
		errs = append(errs, fmt.Errorf("unknown ledger engine %q", c.Ledger.Engine))
	}
	switch c.Notify.Sink {
	case NotifyLog, NotifyRedis, NotifyBoth:
	default:
		errs = append(errs, fmt.Errorf("unknown notify sink %q", c.Notify.Sink))
	}
	if _, err := time.LoadLocation(c.Bank.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("bank timezone: %w", err))
	}
	if _, err := c.DailyLimit(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location 銀行所在時區
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Bank.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DailyLimit 每日上限；未設定時回傳零值，由 usecase 套用預設
func (c *Config) DailyLimit() (decimal.Decimal, error) {
	if c.Bank.DailyLimit == "" {
		return decimal.Zero, nil
	}
	limit, err := decimal.NewFromString(c.Bank.DailyLimit)
	if err != nil || !limit.IsPositive() {
		return decimal.Zero, fmt.Errorf("bank daily_limit must be a positive amount, got %q", c.Bank.DailyLimit)
	}
	return limit, nil
}
