package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ke2007/MarkdownShare/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration
type Config struct {
	UploadsDir     string
	PublicDir      string
	Port           string
	MaxUploadBytes int64
	LogStaticFiles bool
	MetricsEnabled bool

	// Derived paths under UploadsDir
	MarkdownDir   string
	ImagesDir     string
	ThumbnailsDir string
	GroupsDir     string
	TempDir       string
}

// LoadConfig loads and validates configuration from environment
// variables and creates the uploads directory subtree.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	uploadsDir := getEnv("UPLOADS_DIR", "./uploads")
	publicDir := getEnv("PUBLIC_DIR", "./public")
	port := getEnv("PORT", "3000")
	maxUploadMB := getEnvInt("MAX_UPLOAD_MB", 10)
	logStaticFiles := getEnvBool("LOG_STATIC_FILES", false)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)

	logging.Info("  UPLOADS_DIR:      %s", uploadsDir)
	logging.Info("  PUBLIC_DIR:       %s", publicDir)
	logging.Info("  PORT:             %s", port)
	logging.Info("  MAX_UPLOAD_MB:    %d", maxUploadMB)
	logging.Info("  LOG_STATIC_FILES: %v", logStaticFiles)
	logging.Info("  METRICS_ENABLED:  %v", metricsEnabled)
	logging.Info("  LOG_LEVEL:        %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	uploadsDir, err := filepath.Abs(uploadsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve uploads directory path: %w", err)
	}
	logging.Info("  Uploads directory (absolute): %s", uploadsDir)

	publicDir, err = filepath.Abs(publicDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve public directory path: %w", err)
	}

	config := &Config{
		UploadsDir:     uploadsDir,
		PublicDir:      publicDir,
		Port:           port,
		MaxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
		LogStaticFiles: logStaticFiles,
		MetricsEnabled: metricsEnabled,
		MarkdownDir:    filepath.Join(uploadsDir, "markdown"),
		ImagesDir:      filepath.Join(uploadsDir, "images"),
		ThumbnailsDir:  filepath.Join(uploadsDir, "thumbnails"),
		GroupsDir:      filepath.Join(uploadsDir, "groups"),
		TempDir:        filepath.Join(uploadsDir, "temp"),
	}

	for _, dir := range []string{
		config.UploadsDir, config.MarkdownDir, config.ImagesDir,
		config.ThumbnailsDir, config.GroupsDir, config.TempDir,
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	logging.Info("  [OK] Uploads subtree ready")

	if err := testWriteAccess(config.UploadsDir); err != nil {
		return nil, fmt.Errorf("uploads directory is not writable: %w", err)
	}
	logging.Info("  [OK] Uploads directory is writable")

	return config, nil
}

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if !logging.IsDebugEnabled() {
		return
	}

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, method := range methods {
			logging.Debug("  %-6s %s", method, pathTemplate)
		}
		return nil
	})
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
}

// LogServerStarted logs successful server start
func LogServerStarted(port string, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time: %v", startupDuration)
	logging.Info("")
	logging.Info("  Application:  http://0.0.0.0:%s", port)
	logging.Info("  Local access: http://localhost:%s", port)
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         __       __                 _____ __
   /  |/  /___ ____/ /______/ /___ _      ______/ ___// /_  ____ _________
  / /|_/ / __ '/ __/ //_/ __  / __ \ | /| / / __ \__ \/ __ \/ __ '/ ___/ _ \
 / /  / / /_/ / / / ,< / /_/ / /_/ / |/ |/ / / / /_/ / / / / /_/ / /  /  __/
/_/  /_/\__,_/_/ /_/|_|\__,_/\____/|__/|__/_/ /_/____/_/ /_/\__,_/_/   \___/

------------------------------------------------------------`
	for _, line := range strings.Split(banner, "\n") {
		logging.Info("%s", line)
	}
}

func logSystemInfo() {
	logging.Info("Version:    %s (commit %s)", Version, Commit)
	logging.Info("Built:      %s", BuildTime)
	logging.Info("Go version: %s", GoVersion)
	logging.Info("Platform:   %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n <= 0 {
		logging.Warn("  Invalid %s=%q, using default %d", key, value, fallback)
		return fallback
	}
	return n
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return err
	}
	return os.Remove(testFile)
}
