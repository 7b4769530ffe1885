package gormdb

import (
	"context"
	"fmt"
	"net"
	"time"

	"orderflow/config"
	"orderflow/infrastructure/persistence/gormdb/po"
	"orderflow/pkg/logger"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 10
	DefaultConnMaxLifetime = 10 * time.Minute
	DefaultConnMaxIdleTime = 5 * time.Minute
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config 数据库连接配置，由 config.DatabaseConfig 转换而来
type Config struct {
	Driver           string
	Host             string
	Port             string
	Username         string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	StatementTimeout time.Duration
	LogLevel         string
	SlowThreshold    time.Duration
}

func FromAppConfig(c config.DatabaseConfig) Config {
	return Config{
		Driver:           c.Driver,
		Host:             c.Host,
		Port:             c.Port,
		Username:         c.Username,
		Password:         c.Password,
		Database:         c.Database,
		SSLMode:          c.SSLMode,
		MaxOpenConns:     c.MaxOpenConns,
		MaxIdleConns:     c.MaxIdleConns,
		ConnMaxLifetime:  c.ConnMaxLifetime,
		StatementTimeout: c.StatementTimeout,
		LogLevel:         c.LogLevel,
		SlowThreshold:    c.SlowThreshold,
	}
}

// PostgresDSN keyword/value 形式；未知键（statement_timeout）由 pgx 作为会话参数下发
func (c *Config) PostgresDSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.Username, c.Password, c.Database, sslMode)
	if c.StatementTimeout > 0 {
		dsn += fmt.Sprintf(" statement_timeout=%d", c.StatementTimeout.Milliseconds())
	}
	return dsn
}

// MySQLDSN ClientFoundRows 使批量更新返回匹配行数而非实际变更行数
func (c *Config) MySQLDSN() string {
	cfg := mysqlDriver.NewConfig()
	cfg.User = c.Username
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, c.Port)
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	cfg.Collation = "utf8mb4_unicode_ci"
	if c.StatementTimeout > 0 {
		cfg.ReadTimeout = c.StatementTimeout
		cfg.WriteTimeout = c.StatementTimeout
	}
	return cfg.FormatDSN()
}

func (c *Config) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case DriverPostgres, "":
		return postgres.Open(c.PostgresDSN()), nil
	case DriverMySQL:
		return mysql.Open(c.MySQLDSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

func (c *Config) applyDefaults() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = DefaultMaxOpenConns
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = DefaultConnMaxIdleTime
	}
}

func (c *Config) Connect() (*gorm.DB, error) {
	c.applyDefaults()
	dialector, err := c.dialector()
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		Logger:         logger.NewGormLogger(logger.ParseGormLevel(c.LogLevel), c.SlowThreshold),
		TranslateError: false,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(c.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(c.ConnMaxIdleTime)

	logger.Info("Database connected",
		zap.String("driver", c.Driver),
		zap.String("host", c.Host),
		zap.String("database", c.Database),
		zap.Int("max_open_conns", c.MaxOpenConns),
		zap.Int("max_idle_conns", c.MaxIdleConns),
		zap.Duration("conn_max_lifetime", c.ConnMaxLifetime),
	)

	return db, nil
}

// Ping 检查已建立连接的可用性
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Models 全部持久化对象，按依赖顺序
func Models() []interface{} {
	return []interface{}{
		&po.RolePO{},
		&po.AccountPO{},
		&po.OrderStatusPO{},
		&po.DeliveryAddressPO{},
		&po.OrderPO{},
		&po.CompositionOrderPO{},
		&po.ShoppingCartPO{},
		&po.OutboxEventPO{},
	}
}

// AutoMigrate 建表并创建外键：
// orders.delivery_address_id、orders.order_status_id 为 RESTRICT，
// composition_orders.order_id、shopping_cart.account_id 为 CASCADE
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
