package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"prizepool/database"
	"prizepool/domain/fixedpoint"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)

	// Pool configuration
	FeeFraction    fixedpoint.Fraction // Fee taken from each draw's gross winnings
	FeeBeneficiary int64               // Account credited with the fee
	AdminIDs       []int64             // Accounts allowed to run admin operations

	// Draw schedule configuration
	LockDurationBlocks     int64         // Length of the reward lock window
	CooldownDurationBlocks int64         // Minimum gap between lock windows
	EntropyCycleBlocks     int64         // Commit/reveal cycle length for the seed source
	BlockInterval          time.Duration // Wall-clock length of one block
	DrawPeriod             time.Duration // Time between draw rotations

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		FeeBeneficiary: 1, // Pool operator account

		LockDurationBlocks:     10,
		CooldownDurationBlocks: 5,
		EntropyCycleBlocks:     20,
		BlockInterval:          15 * time.Second,
		DrawPeriod:             24 * time.Hour,

		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
	}

	fraction, err := fixedpoint.ParseFraction(getEnvWithDefault("FEE_FRACTION", "0.1"))
	if err != nil {
		return nil, fmt.Errorf("invalid FEE_FRACTION: %w", err)
	}
	config.FeeFraction = fraction

	if beneficiary := os.Getenv("FEE_BENEFICIARY_ID"); beneficiary != "" {
		id, err := strconv.ParseInt(beneficiary, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid FEE_BENEFICIARY_ID: %w", err)
		}
		config.FeeBeneficiary = id
	}

	if adminIDs := os.Getenv("ADMIN_ACCOUNT_IDS"); adminIDs != "" {
		for _, idStr := range strings.Split(adminIDs, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid ADMIN_ACCOUNT_IDS entry %q: %w", idStr, err)
			}
			config.AdminIDs = append(config.AdminIDs, id)
		}
	}

	if err := overrideInt64(&config.LockDurationBlocks, "LOCK_DURATION_BLOCKS"); err != nil {
		return nil, err
	}
	if err := overrideInt64(&config.CooldownDurationBlocks, "COOLDOWN_DURATION_BLOCKS"); err != nil {
		return nil, err
	}
	if err := overrideInt64(&config.EntropyCycleBlocks, "ENTROPY_CYCLE_BLOCKS"); err != nil {
		return nil, err
	}
	if err := overrideDuration(&config.BlockInterval, "BLOCK_INTERVAL"); err != nil {
		return nil, err
	}
	if err := overrideDuration(&config.DrawPeriod, "DRAW_PERIOD"); err != nil {
		return nil, err
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
		if len(config.AdminIDs) == 0 {
			return nil, fmt.Errorf("ADMIN_ACCOUNT_IDS is required")
		}
	}

	return config, nil
}

func overrideInt64(target *int64, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = parsed
	return nil
}

func overrideDuration(target *time.Duration, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*target = parsed
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:            "test",
		FeeFraction:            fixedpoint.Zero,
		FeeBeneficiary:         1,
		AdminIDs:               []int64{999999},
		LockDurationBlocks:     10,
		CooldownDurationBlocks: 5,
		EntropyCycleBlocks:     20,
		BlockInterval:          time.Second,
		DrawPeriod:             time.Minute,
	}
}
