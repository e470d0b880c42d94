package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"datamod/internal/config"
	apperrors "datamod/internal/errors"
)

var (
	ErrFileNotFound      = errors.New("file not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file is empty")
	ErrLimitExceeded     = errors.New("input limit exceeded")
	ErrNotWritable       = errors.New("output location is not writable")
)

// Limits bounds the size of accepted input
type Limits struct {
	MaxFileSizeBytes int64
	MaxRows          int
	MaxColumns       int
}

// LimitsFromDefaults converts the configured defaults into Limits
func LimitsFromDefaults(d config.AppDefaults) Limits {
	return Limits{
		MaxFileSizeBytes: int64(d.MaxFileSizeMB) * 1024 * 1024,
		MaxRows:          d.MaxRows,
		MaxColumns:       d.MaxColumns,
	}
}

// FileValidator checks input files before loading and output locations before saving
type FileValidator struct {
	logger *slog.Logger
	limits Limits
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger, limits Limits) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With("component", "file_validator"),
		limits: limits,
	}
}

// Limits returns the configured input limits
func (v *FileValidator) Limits() Limits {
	return v.limits
}

// ValidateInputFile checks that path is a readable, non-empty file with a
// supported extension and within the size limit
func (v *FileValidator) ValidateInputFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		v.logger.Warn("Input file does not exist", slog.String("file", path))
		return nil, apperrors.NewFileLoadError(apperrors.CodeFileNotFound,
			fmt.Sprintf("file %s does not exist", path), ErrFileNotFound).WithContext("path", path)
	}
	if err != nil {
		return nil, v.statError(path, err)
	}
	if info.IsDir() {
		v.logger.Warn("Input path is a directory", slog.String("path", path))
		return nil, apperrors.NewFileLoadError(apperrors.CodeUnsupportedFormat,
			fmt.Sprintf("%s is a directory, not a file", path), ErrUnsupportedFormat).WithContext("path", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !contains(config.SupportedInputExtensions, ext) {
		v.logger.Warn("Unsupported input extension",
			slog.String("file", path),
			slog.String("extension", ext))
		return nil, apperrors.NewFileLoadError(apperrors.CodeUnsupportedFormat,
			fmt.Sprintf("extension %q is not one of %s", ext, strings.Join(config.SupportedInputExtensions, ", ")),
			ErrUnsupportedFormat).WithContext("path", path)
	}

	if info.Size() == 0 {
		return nil, apperrors.NewFileLoadError(apperrors.CodeEmptyFile,
			fmt.Sprintf("file %s is empty", path), ErrEmptyFile).WithContext("path", path)
	}
	if v.limits.MaxFileSizeBytes > 0 && info.Size() > v.limits.MaxFileSizeBytes {
		v.logger.Warn("Input file too large",
			slog.String("file", path),
			slog.Int64("size", info.Size()),
			slog.Int64("limit", v.limits.MaxFileSizeBytes))
		return nil, apperrors.NewFileLoadError(apperrors.CodeLimitExceeded,
			fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), v.limits.MaxFileSizeBytes), ErrLimitExceeded).
			WithContext("path", path).
			WithContext("limit", "file_size")
	}

	// Check if file is readable by opening it
	file, err := os.Open(path)
	if err != nil {
		return nil, v.statError(path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return info, nil
}

// ValidateShape checks a parsed table against the row and column limits
func (v *FileValidator) ValidateShape(rows, cols int) error {
	if v.limits.MaxRows > 0 && rows > v.limits.MaxRows {
		return apperrors.NewFileLoadError(apperrors.CodeLimitExceeded,
			fmt.Sprintf("file has more than %d rows", v.limits.MaxRows), ErrLimitExceeded).
			WithContext("limit", "rows")
	}
	if v.limits.MaxColumns > 0 && cols > v.limits.MaxColumns {
		return apperrors.NewFileLoadError(apperrors.CodeLimitExceeded,
			fmt.Sprintf("file has %d columns, limit is %d", cols, v.limits.MaxColumns), ErrLimitExceeded).
			WithContext("limit", "columns")
	}
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if dir == "" {
		dir = "."
	}
	// Try to create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewExportError(apperrors.CodeExportFailed,
			fmt.Sprintf("cannot create output directory %s", dir), errors.Join(ErrNotWritable, err))
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewExportError(apperrors.CodeExportFailed,
			fmt.Sprintf("output directory %s is not writable", dir), errors.Join(ErrNotWritable, err))
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateOutputFormat returns the lower-case format of path's extension when it
// is one of allowed
func (v *FileValidator) ValidateOutputFormat(path string, allowed []string) (string, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if !contains(allowed, format) {
		return "", apperrors.NewExportError(apperrors.CodeUnsupportedFormat,
			fmt.Sprintf("cannot write %q files, expected one of %s", format, strings.Join(allowed, ", ")),
			ErrUnsupportedFormat).WithContext("path", path)
	}
	return format, nil
}

func (v *FileValidator) statError(path string, err error) error {
	if errors.Is(err, os.ErrPermission) {
		v.logger.Warn("Input file not readable", slog.String("file", path))
		return apperrors.NewFileLoadError(apperrors.CodePermissionDenied,
			fmt.Sprintf("file %s is not readable", path), errors.Join(ErrPermissionDenied, err)).WithContext("path", path)
	}
	v.logger.Error("Failed to stat file",
		slog.String("file", path),
		slog.String("error", err.Error()))
	return apperrors.NewFileLoadError(apperrors.CodeCorruptFile,
		fmt.Sprintf("failed to stat file %s", path), err).WithContext("path", path)
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
