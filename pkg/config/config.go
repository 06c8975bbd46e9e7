package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageLevelDB  = "leveldb"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Log      LogConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Pinata   PinataConfig
	Chain    ChainConfig
	Ledger   LedgerConfig
}

type AppConfig struct {
	Name         string
	Version      string
	Environment  string
	BcryptCost   int
	ReferralSalt string
	AdminEmails  []string
	SnowflakeID  int64
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
	AllowOrigins   []string
}

type LogConfig struct {
	Level string
	File  string
}

type StorageConfig struct {
	Driver      string
	LevelDBPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

type JWTConfig struct {
	SecretKey string
	TTL       time.Duration
}

type PinataConfig struct {
	BaseURL       string
	GatewayURL    string
	APIKey        string
	SecretAPIKey  string
	EncryptionKey string
	Timeout       time.Duration
}

type ChainConfig struct {
	RPCURL         string
	ProgramAddress string
	TokenAddress   string
	PrivateKey     string
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	CatalogScan    int
}

type LedgerConfig struct {
	WelcomeBonus  int64
	ReferralBonus int64
	CatalogFile   string
}

func (c PinataConfig) Enabled() bool {
	return c.APIKey != "" && c.SecretAPIKey != ""
}

func (c ChainConfig) Enabled() bool {
	return c.RPCURL != "" && c.ProgramAddress != "" && c.PrivateKey != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	bcryptCost, err := strconv.Atoi(getEnv("BCRYPT_COST", "10"))
	if err != nil {
		return nil, errors.New("invalid bcrypt cost")
	}

	snowflakeID, err := strconv.ParseInt(getEnv("SNOWFLAKE_NODE_ID", "1"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid snowflake node id")
	}

	catalogScan, err := strconv.Atoi(getEnv("CHAIN_CATALOG_SCAN", "9"))
	if err != nil || catalogScan < 1 {
		return nil, errors.New("invalid chain catalog scan size")
	}

	welcomeBonus, err := strconv.ParseInt(getEnv("LEDGER_WELCOME_BONUS", "50"), 10, 64)
	if err != nil || welcomeBonus < 0 {
		return nil, errors.New("invalid welcome bonus")
	}

	referralBonus, err := strconv.ParseInt(getEnv("LEDGER_REFERRAL_BONUS", "200"), 10, 64)
	if err != nil || referralBonus < 0 {
		return nil, errors.New("invalid referral bonus")
	}

	cfg := &Config{
		App: AppConfig{
			Name:         getEnv("APP_NAME", "BlockRewards"),
			Version:      getEnv("APP_VERSION", "1.0.0"),
			Environment:  getEnv("APP_ENV", "development"),
			BcryptCost:   bcryptCost,
			ReferralSalt: getEnv("REFERRAL_SALT", "blockrewards"),
			AdminEmails:  getList("ADMIN_EMAILS"),
			SnowflakeID:  snowflakeID,
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			RequestTimeout: getDuration("REQUEST_TIMEOUT", 10*time.Second),
			AllowOrigins:   getListDefault("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000"}),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Storage: StorageConfig{
			Driver:      getEnv("STORAGE_DRIVER", StorageLevelDB),
			LevelDBPath: getEnv("LEVELDB_PATH", "./data/blockrewards"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "blockrewards"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			KeyPrefix:     getEnv("REDIS_KEY_PREFIX", "blockrewards:"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
			TTL:       getDuration("JWT_TTL", 24*time.Hour),
		},
		Pinata: PinataConfig{
			BaseURL:       getEnv("PINATA_BASE_URL", "https://api.pinata.cloud"),
			GatewayURL:    getEnv("PINATA_GATEWAY_URL", "https://gateway.pinata.cloud"),
			APIKey:        getEnv("PINATA_API_KEY", ""),
			SecretAPIKey:  getEnv("PINATA_SECRET_API_KEY", ""),
			EncryptionKey: getEnv("PINATA_ENCRYPTION_KEY", ""),
			Timeout:       getDuration("PINATA_TIMEOUT", 10*time.Second),
		},
		Chain: ChainConfig{
			RPCURL:         getEnv("CHAIN_RPC_URL", ""),
			ProgramAddress: getEnv("CHAIN_PROGRAM_ADDRESS", ""),
			TokenAddress:   getEnv("CHAIN_TOKEN_ADDRESS", ""),
			PrivateKey:     getEnv("CHAIN_PRIVATE_KEY", ""),
			ConfirmTimeout: getDuration("CHAIN_CONFIRM_TIMEOUT", 60*time.Second),
			PollInterval:   getDuration("CHAIN_POLL_INTERVAL", 2*time.Second),
			CatalogScan:    catalogScan,
		},
		Ledger: LedgerConfig{
			WelcomeBonus:  welcomeBonus,
			ReferralBonus: referralBonus,
			CatalogFile:   getEnv("LEDGER_CATALOG_FILE", ""),
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	switch cfg.Storage.Driver {
	case StorageLevelDB:
		if cfg.Storage.LevelDBPath == "" {
			return nil, errors.New("missing leveldb path")
		}
	case StoragePostgres:
		if cfg.Database.Password == "" {
			return nil, errors.New("missing database password")
		}
	case StorageRedis:
	default:
		return nil, errors.New("unknown storage driver " + cfg.Storage.Driver)
	}

	if k := len(cfg.Pinata.EncryptionKey); k != 0 && k != 16 && k != 24 && k != 32 {
		return nil, errors.New("pinata encryption key must be 16, 24 or 32 bytes")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func getList(key string) []string {
	return getListDefault(key, nil)
}

func getListDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
