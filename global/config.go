package global

import (
	"fmt"
	"os"

	"github.com/go-redis/redis_rate/v10"
	"gopkg.in/yaml.v3"
)

// Conf global config
var Conf Config

// Global rate limiter
var RateLimiter *redis_rate.Limiter

type Config struct {
	Version    string           `yaml:"version"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	Scheme     string           `yaml:"scheme"`
	Mode       string           `yaml:"mode"` // debug or release
	DataAPI    DataAPIConfig    `yaml:"dataapi"`
	Vault      VaultConfig      `yaml:"vault"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Redis      RedisConfig      `yaml:"redis"`
}

// DataAPIConfig points to the MongoDB Atlas Data API endpoint the repositories
// talk to. Collection names are fixed by the repository package.
type DataAPIConfig struct {
	BaseURL    string `yaml:"baseUrl"`
	Key        string `yaml:"key"`
	DataSource string `yaml:"dataSource"`
	Database   string `yaml:"database"`
}

// VaultConfig carries the server-wide secrets of the credential-protection
// subsystem. All of them are handed to components at construction time;
// nothing reads them ambiently after startup.
type VaultConfig struct {
	// hex encoded 32 byte AES key and 16 byte IV. The IV is fixed so field
	// encryption stays deterministic and encrypted columns remain queryable
	// by equality.
	EncryptionKeyHex string `yaml:"encryptionKeyHex"`
	EncryptionIVHex  string `yaml:"encryptionIvHex"`
	HashSalt         string `yaml:"hashSalt"`
	// signing secret for session tokens
	TokenMasterSecret string `yaml:"tokenMasterSecret"`
	// separate signing secret for passkey login challenges
	PasskeyChallengeSecret string `yaml:"passkeyChallengeSecret"`
	// salt mixed into the client side public encryption key at registration
	PublicKeySalt string `yaml:"publicKeySalt"`
	// TOTP issuer shown in authenticator apps
	TotpIssuer string `yaml:"totpIssuer"`
	// minimum seconds between successful logins for one identity (default 300)
	LoginDelaySeconds int `yaml:"loginDelaySeconds"`
}

type PrometheusConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	Username string `yaml:"username"`
}

// LoadConfig reads a yaml configuration file into conf
func LoadConfig(path string, conf *Config) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, conf); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}
