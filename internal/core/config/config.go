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
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
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
	Enable   bool   `mapstructure:"enable"`
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

type Upload struct {
	Dir       string
	MaxSizeMB int
	URLPrefix string
}

type Minio struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Storage struct {
	Driver string // local / minio
	Minio  Minio
}

type Chat struct {
	Endpoint   string
	Model      string
	APIKey     string
	TimeoutSec int
	RPS        float64
	Burst      int
}

type Cache struct {
	FilterOptionsTTLSec int
}

type CORS struct {
	AllowOrigins []string
}

type Limits struct {
	RPS            float64
	Burst          int
	MaxConcurrent  int64
	MaxBodyMB      int64
	RequestTimeout int // 秒
}

type Config struct {
	App     App
	Log     Log
	JWT     JWT
	DB      DB
	Redis   Redis `mapstructure:"redis"`
	Upload  Upload
	Storage Storage
	Chat    Chat
	Cache   Cache
	CORS    CORS
	Limits  Limits
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "papervault")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 15)
	v.SetDefault("app.http.writeTimeoutSec", 60)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/app.log")
	v.SetDefault("log.file.maxSizeMB", 100)
	v.SetDefault("log.file.maxBackups", 7)
	v.SetDefault("log.file.maxAgeDays", 30)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "papervault")
	v.SetDefault("jwt.accessTokenTTLMin", 43200) // 30 天

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "papervault.db")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.enable", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.maxSizeMB", 10)
	v.SetDefault("upload.urlPrefix", "/uploads/")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.minio.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.minio.accessKey", "")
	v.SetDefault("storage.minio.secretKey", "")
	v.SetDefault("storage.minio.bucket", "papers")
	v.SetDefault("storage.minio.useSSL", false)

	v.SetDefault("chat.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("chat.model", "gemini-2.0-flash")
	v.SetDefault("chat.apiKey", "")
	v.SetDefault("chat.timeoutSec", 20)
	v.SetDefault("chat.rps", 1)
	v.SetDefault("chat.burst", 5)

	v.SetDefault("cache.filterOptionsTTLSec", 300)

	v.SetDefault("cors.allowOrigins", []string{"http://localhost:3000"})

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.maxConcurrent", 300)
	v.SetDefault("limits.maxBodyMB", 16)
	v.SetDefault("limits.requestTimeout", 30)
}

// LoadE 读取 YAML，APP_ 前缀环境变量覆盖（APP_DB_DSN → db.dsn）
func LoadE(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret is required")
	}
	return &c, nil
}

func Load(path string) *Config {
	c, err := LoadE(path)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return c
}

// MaxUploadBytes 单文件上限
func (c *Config) MaxUploadBytes() int64 { return int64(c.Upload.MaxSizeMB) << 20 }
