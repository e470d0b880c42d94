package validation

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datamod/internal/config"
	apperrors "datamod/internal/errors"
)

func testLimits() Limits {
	return Limits{MaxFileSizeBytes: 64, MaxRows: 5, MaxColumns: 3}
}

func TestLimitsFromDefaults(t *testing.T) {
	limits := LimitsFromDefaults(config.DefaultAppDefaults())
	assert.Equal(t, int64(100*1024*1024), limits.MaxFileSizeBytes)
	assert.Equal(t, 1_000_000, limits.MaxRows)
	assert.Equal(t, 100, limits.MaxColumns)
}

func TestFileValidator_ValidateInputFile(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantErr   error
		wantCode  string
	}{
		{
			name: "valid csv",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "data.csv")
				require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0644))
				return path
			},
		},
		{
			name: "upper-case extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "DATA.TXT")
				require.NoError(t, os.WriteFile(path, []byte("a\tb\n"), 0644))
				return path
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.csv")
			},
			wantErr:  ErrFileNotFound,
			wantCode: apperrors.CodeFileNotFound,
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				dir := filepath.Join(t.TempDir(), "dir.csv")
				require.NoError(t, os.Mkdir(dir, 0755))
				return dir
			},
			wantErr:  ErrUnsupportedFormat,
			wantCode: apperrors.CodeUnsupportedFormat,
		},
		{
			name: "unsupported extension",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "data.json")
				require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
				return path
			},
			wantErr:  ErrUnsupportedFormat,
			wantCode: apperrors.CodeUnsupportedFormat,
		},
		{
			name: "empty file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "empty.csv")
				require.NoError(t, os.WriteFile(path, nil, 0644))
				return path
			},
			wantErr:  ErrEmptyFile,
			wantCode: apperrors.CodeEmptyFile,
		},
		{
			name: "file too large",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "big.csv")
				require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("1,2\n", 40)), 0644))
				return path
			},
			wantErr:  ErrLimitExceeded,
			wantCode: apperrors.CodeLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(slog.Default(), testLimits())
			path := tt.setupFunc(t)

			info, err := validator.ValidateInputFile(path)

			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.NotNil(t, info)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
			appErr, ok := apperrors.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrTypeFileLoad, appErr.Type)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestFileValidator_ValidateShape(t *testing.T) {
	validator := NewFileValidator(nil, testLimits())

	assert.NoError(t, validator.ValidateShape(5, 3))
	assert.True(t, errors.Is(validator.ValidateShape(6, 1), ErrLimitExceeded))
	assert.True(t, errors.Is(validator.ValidateShape(1, 4), ErrLimitExceeded))

	unbounded := NewFileValidator(nil, Limits{})
	assert.NoError(t, unbounded.ValidateShape(10_000_000, 1000))
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		wantErr   bool
	}{
		{
			name: "existing directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
		},
		{
			name: "non-existent directory (should be created)",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "new", "nested", "dir")
			},
		},
		{
			name: "path below a regular file",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "file")
				require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
				return filepath.Join(file, "sub")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(slog.Default(), testLimits())
			dir := tt.setupFunc(t)

			err := validator.ValidateOutputDirectory(dir)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNotWritable))
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeExport))
				return
			}
			require.NoError(t, err)
			assert.DirExists(t, dir)
			assert.NoFileExists(t, filepath.Join(dir, ".write_test"))
		})
	}
}

func TestFileValidator_ValidateOutputFormat(t *testing.T) {
	validator := NewFileValidator(nil, testLimits())

	format, err := validator.ValidateOutputFormat("out/Result.XLSX", config.SupportedSaveFormats)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", format)

	format, err = validator.ValidateOutputFormat("chart.pdf", config.SupportedChartFormats)
	require.NoError(t, err)
	assert.Equal(t, "pdf", format)

	for _, path := range []string{"result.xls", "result", "chart.svg"} {
		_, err := validator.ValidateOutputFormat(path, config.SupportedSaveFormats)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat), path)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeExport), path)
	}
}
