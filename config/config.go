package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	JWTKey    string
	SaltRound int

	// EduChain ledger settings
	ChainRPCURL       string
	ChainID           int64
	ContractAddress   string
	LedgerPrivateKey  string // hex, no 0x prefix
	LedgerWaitSeconds int    // bounded wait for receipt confirmation

	// Dapp-visit attestation service
	AttestationApiURL string
	AttestationApiKey string

	EmailSender string
	Password    string // SMTP Password
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	// Initialize AppConfig with values from environment variables
	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		ChainRPCURL:       getEnv("CHAIN_RPC_URL", "https://rpc.open-campus-codex.gelato.digital"),
		ChainID:           int64(getEnvInt("CHAIN_ID", 656476)),
		ContractAddress:   getEnv("CONTRACT_ADDRESS", ""),
		LedgerPrivateKey:  getEnv("LEDGER_PRIVATE_KEY", ""),
		LedgerWaitSeconds: getEnvInt("LEDGER_WAIT_SECONDS", 90),

		AttestationApiURL: getEnv("ATTESTATION_API_URL", "https://attest.educhain.app/v1/"),
		AttestationApiKey: getEnv("ATTESTATION_API_KEY", ""),

		EmailSender: getEnv("EMAIL_SENDER", "defaultSecret"),
		Password:    getEnv("PASSWORD", "defaultSecret"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.LedgerPrivateKey == "" {
		log.Println("Warning: LEDGER_PRIVATE_KEY not set. On-chain settlement will be disabled.")
	}
	if AppConfig.ContractAddress == "" {
		log.Println("Warning: CONTRACT_ADDRESS not set. On-chain settlement will be disabled.")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
