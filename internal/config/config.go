// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"heritagebackend/internal/logger"
)

// Variables available everywhere
var (
	baseDir        string
	dataDirectory  string
	logsDirectory  string
	primaryDBPath  string
	siblingDBPath  string
	publicBaseURL  string
	AllowedOrigin  string // For CORS
	LogFileFormat  string
)

// CompanyProfile is the fixed company identity block stamped onto every
// rendered quote. The renderer is external; this is the one place the
// values live.
type CompanyProfile struct {
	Name    string
	Address string
	City    string
	Phone   string
	Cell    string
	Email   string
	RBQ     string
	NEQ     string
	TPS     string
	TVQ     string
}

var company = CompanyProfile{
	Name:    "Construction Héritage",
	Address: "129 Rue Poirier",
	City:    "Saint-Jean-sur-Richelieu (Québec) J3B 4E9",
	Phone:   "438.524.9193",
	Cell:    "514.983.7492",
	Email:   "info@constructionheritage.ca",
	RBQ:     "5788-9784-01",
	NEQ:     "1163835623",
	TPS:     "850370164RT0001",
	TVQ:     "1212199610TQ0002",
}

//
// --- Utility Helpers ---
//

// Helper: get a setting based on ENVIRONMENT (dev or prod)
func GetEnvBasedSetting(base string) string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}
	return os.Getenv(fmt.Sprintf("%s_%s", base, strings.ToUpper(env)))
}

// Helper: log which environment is running
func LogCurrentEnvironment() {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	if env == "dev" {
		logger.LogInfo("Running in development environment")
	} else {
		logger.LogInfo("Running in production environment")
	}
}

//
// --- Loaders ---
//

// LoadEnv reads .env file
func LoadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("Could not determine working directory: %v", err)
	}

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found in %s. Using system environment variables.", wd)
	} else {
		log.Printf("Loaded environment variables from .env file in %s", wd)
	}
}

// LoggerConfig returns a logger.Config struct populated from environment
func LoggerConfig() logger.Config {
	logDir := GetEnvBasedSetting("LOGS_DIRECTORY")
	if logDir == "" {
		logDir = "./logs"
	}

	logFormat := GetEnvBasedSetting("LOG_FILE_FORMAT")
	if logFormat == "" {
		logFormat = "server_%s.log"
	}

	timezone := os.Getenv("TIME_ZONE")
	if timezone == "" {
		timezone = "America/Montreal"
	}

	return logger.Config{
		LogsDirectory: logDir,
		LogFileFormat: logFormat,
		TimeZone:      timezone,
	}
}

// ConfigurePaths sets up folders and derived paths. The primary and sibling
// quote stores live side by side in the data directory; only the primary is
// ever written.
func ConfigurePaths() {
	wd, err := os.Getwd()
	if err != nil {
		logger.LogFatal("Failed to get working directory: %v", err)
	}
	baseDir = wd

	dataDir := GetEnvBasedSetting("DATA_DIRECTORY")
	if dataDir != "" {
		dataDirectory = dataDir
	} else {
		dataDirectory = filepath.Join(baseDir, "data")
	}

	logsDir := GetEnvBasedSetting("LOGS_DIRECTORY")
	if logsDir != "" {
		logsDirectory = logsDir
	} else {
		logsDirectory = filepath.Join(baseDir, "logs")
	}

	primaryDBPath = filepath.Join(dataDirectory, "soumissions_heritage.db")
	siblingDBPath = filepath.Join(dataDirectory, "soumissions_multi.db")
	LogFileFormat = filepath.Join(logsDirectory, "server_%s.log")

	if err := os.MkdirAll(dataDirectory, 0775); err != nil {
		logger.LogFatal("Failed to create data directory '%s': %v", dataDirectory, err)
	}
}

// LoadCORSConfig loads CORS settings
func LoadCORSConfig() {
	AllowedOrigin = GetEnvBasedSetting("ALLOWED_ORIGIN")
	if AllowedOrigin == "" {
		AllowedOrigin = "*" // Allow all - be careful in prod
		logger.LogWarn("ALLOWED_ORIGIN not set, using '*' (allow all origins) - SECURITY RISK")
	} else {
		logger.LogInfo("Allowed Origin: %s", AllowedOrigin)
	}
}

// LoadPublicLinkConfig sets the base URL embedded in shared read-only links.
func LoadPublicLinkConfig() {
	publicBaseURL = GetEnvBasedSetting("PUBLIC_BASE_URL")
	if publicBaseURL == "" {
		publicBaseURL = "http://localhost:8501"
		logger.LogWarn("PUBLIC_BASE_URL not set, using default: %s", publicBaseURL)
	} else {
		logger.LogInfo("Public link base URL: %s", publicBaseURL)
	}
}

//
// --- Getters (exported) ---
//

func DataDirectory() string {
	return dataDirectory
}

func LogsDirectory() string {
	return logsDirectory
}

// PrimaryDBPath is the authoritative quote store.
func PrimaryDBPath() string {
	return primaryDBPath
}

// SiblingDBPath is the legacy parallel store, read only for numbering.
func SiblingDBPath() string {
	return siblingDBPath
}

func PublicBaseURL() string {
	return publicBaseURL
}

func Company() CompanyProfile {
	return company
}
