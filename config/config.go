package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultUploadsSubDir    = "uploads"
	DefaultThumbnailsSubDir = "thumbnails"
	DefaultDataSubDir       = "data"
)

const (
	defaultImageQueueSize   = 200
	defaultNumImageWorkers  = 4
	defaultThumbnailMaxSize = 400
	defaultListenAddr       = ":5000"
)

type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string

	// StoragePath is the primary root for all persisted state.
	StoragePath    string
	UploadsPath    string // full-calculated path for original images
	ThumbnailsPath string // full-calculated path for generated thumbnails
	DataPath       string // full-calculated path for JSON state files

	// thumbnail generation settings
	ThumbnailMaxSize int

	// worker settings
	ImageQueueSize  int
	NumImageWorkers int

	// JWTSecret signs admin session tokens.
	JWTSecret string

	// DisplayToken authorizes the photo frame's display endpoints. Empty
	// leaves them open, which suits a trusted LAN.
	DisplayToken string

	// CORSAllowedOrigin for the admin frontend, "*" by default.
	CORSAllowedOrigin string

	// RcloneConfigPath holds the backup remote credentials.
	RcloneConfigPath string
	// RcloneRemote is the remote name inside that config.
	RcloneRemote string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	storage := getEnvOrDefault("STORAGE_PATH", filepath.Join(".", "storage"))
	absStorage, err := filepath.Abs(storage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for storage '%s': %w", storage, err)
	}

	uploadsSubDir := getEnvOrDefault("UPLOADS_SUBDIR", DefaultUploadsSubDir)
	thumbSubDir := getEnvOrDefault("THUMBNAILS_SUBDIR", DefaultThumbnailsSubDir)
	dataSubDir := getEnvOrDefault("DATA_SUBDIR", DefaultDataSubDir)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}

	cfg := Config{
		ListenAddr:        getEnvOrDefault("LISTEN_ADDR", defaultListenAddr),
		StoragePath:       absStorage,
		UploadsPath:       filepath.Join(absStorage, uploadsSubDir),
		ThumbnailsPath:    filepath.Join(absStorage, thumbSubDir),
		DataPath:          filepath.Join(absStorage, dataSubDir),
		ThumbnailMaxSize:  getEnvIntOrDefault("THUMBNAIL_MAX_SIZE", defaultThumbnailMaxSize),
		ImageQueueSize:    getEnvIntOrDefault("IMAGE_QUEUE_SIZE", defaultImageQueueSize),
		NumImageWorkers:   getEnvIntOrDefault("NUM_IMAGE_WORKERS", defaultNumImageWorkers),
		JWTSecret:         jwtSecret,
		DisplayToken:      os.Getenv("DISPLAY_TOKEN"),
		CORSAllowedOrigin: getEnvOrDefault("CORS_ALLOWED_ORIGIN", "*"),
		RcloneConfigPath:  getEnvOrDefault("RCLONE_CONFIG_PATH", filepath.Join(absStorage, "rclone.conf")),
		RcloneRemote:      getEnvOrDefault("RCLONE_REMOTE", "backup"),
	}

	return cfg, nil
}
