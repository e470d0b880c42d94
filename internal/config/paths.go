package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Paths contains all the application paths.
// Relative directories from PathsConfig are resolved against the executable
// directory, never the current working directory.
type Paths struct {
	ExecutableDir string
	DataDir       string
	ExportsDir    string
	ConfigDir     string
	LogsDir       string

	// Static configuration documents
	DefaultsFile string
	UnitsFile    string
}

// GetPaths returns the default application paths relative to the executable location
func GetPaths() (*Paths, error) {
	return ResolvePaths(Default().Paths)
}

// ResolvePaths resolves a PathsConfig into absolute paths
func ResolvePaths(pc PathsConfig) (*Paths, error) {
	base := pc.ExecutableDir
	if base == "" {
		exeDir, err := executableDir()
		if err != nil {
			return nil, err
		}
		base = exeDir
	}
	return NewPaths(base, pc), nil
}

// NewPaths builds Paths rooted at base
func NewPaths(base string, pc PathsConfig) *Paths {
	resolve := func(dir, fallback string) string {
		if dir == "" {
			dir = fallback
		}
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(base, dir)
	}

	configDir := resolve(pc.ConfigDir, DefaultConfigDir)

	return &Paths{
		ExecutableDir: base,
		DataDir:       resolve(pc.DataDir, DefaultDataDir),
		ExportsDir:    resolve(pc.ExportsDir, DefaultExportsDir),
		ConfigDir:     configDir,
		LogsDir:       resolve(pc.LogsDir, DefaultLogsDir),
		DefaultsFile:  filepath.Join(configDir, DefaultsFileName),
		UnitsFile:     filepath.Join(configDir, UnitsFileName),
	}
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return filepath.Dir(exe), nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.ExportsDir,
		p.LogsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists",
			slog.String("directory", dir))
	}

	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetExportPath returns the path for an exported file. Absolute names are
// returned unchanged.
func (p *Paths) GetExportPath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(p.ExportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// TimestampedName inserts a _YYYYMMDD_HHMMSS suffix before the extension:
// "result.xlsx" -> "result_20251127_143000.xlsx".
func TimestampedName(filename string, now time.Time) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	return fmt.Sprintf("%s_%s%s", stem, now.Format(ExportTimestampLayout), ext)
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution() {
	slog.Default().Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("exports", p.ExportsDir),
			slog.String("config", p.ConfigDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("config_files",
			slog.String("defaults", p.DefaultsFile),
			slog.Bool("defaults_exists", FileExists(p.DefaultsFile)),
			slog.String("units", p.UnitsFile),
			slog.Bool("units_exists", FileExists(p.UnitsFile)),
		))
}
