package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// Users 分页默认值（对应后台三个列表页）
type Users struct {
	DefaultPerPage     int `mapstructure:"default_per_page"`
	DeactivatedPerPage int `mapstructure:"deactivated_per_page"`
	DeletedPerPage     int `mapstructure:"deleted_per_page"`
	MaxPerPage         int `mapstructure:"max_per_page"`
}

type Roles struct {
	SortField   string `mapstructure:"sort_field"`
	SortDir     string `mapstructure:"sort_dir"`
	CacheTTLSec int    `mapstructure:"cache_ttl_sec"`
}

type Vault struct {
	Users     Users  `mapstructure:"users"`
	Roles     Roles  `mapstructure:"roles"`
	AdminRole string `mapstructure:"admin_role"`
}

type Limits struct {
	RPS           float64
	Burst         int
	MaxConcurrent int64
	MaxBodyMB     int64
	TimeoutSec    int
}

type Config struct {
	App    App
	Log    Log
	JWT    JWT
	DB     DB
	Redis  Redis `mapstructure:"redis"`
	Vault  Vault `mapstructure:"vault"`
	Limits Limits
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rbac-vault")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8081)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)

	v.SetDefault("log.level", "info")

	v.SetDefault("jwt.issuer", "rbac-vault")
	v.SetDefault("jwt.accesstokenttlmin", 120)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:vault.db?_busy_timeout=5000")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 5)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.loglevel", "warn")

	v.SetDefault("vault.users.default_per_page", 10)
	v.SetDefault("vault.users.deactivated_per_page", 25)
	v.SetDefault("vault.users.deleted_per_page", 25)
	v.SetDefault("vault.users.max_per_page", 100)
	v.SetDefault("vault.roles.sort_field", "id")
	v.SetDefault("vault.roles.sort_dir", "asc")
	v.SetDefault("vault.roles.cache_ttl_sec", 60)
	v.SetDefault("vault.admin_role", "Administrator")

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.maxconcurrent", 300)
	v.SetDefault("limits.maxbodymb", 16)
	v.SetDefault("limits.timeoutsec", 10)
}

// Read 读取配置文件 + APP_* 环境变量；文件不存在时只用默认值和环境变量
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return c
}
