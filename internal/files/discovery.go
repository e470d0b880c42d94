package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"datamod/internal/config"
)

// Locations a Discovery can list
const (
	LocationData    = "data"
	LocationExports = "exports"
)

// ErrUnknownLocation is returned for a location other than data or exports
var ErrUnknownLocation = errors.New("unknown location")

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Format  string    `json:"format"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Discovery lists the files the application can open or has written
type Discovery struct {
	paths *config.Paths
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(paths *config.Paths) *Discovery {
	return &Discovery{paths: paths}
}

// Locations returns the names accepted by List
func Locations() []string {
	return []string{LocationData, LocationExports}
}

// List returns the loadable tables in the data directory, or the saved tables
// and charts in the exports directory, newest first. A missing directory
// yields an empty list.
func (d *Discovery) List(location string) ([]FileInfo, error) {
	switch location {
	case LocationData:
		return d.find(d.paths.DataDir, config.SupportedInputExtensions)
	case LocationExports:
		var exts []string
		for _, f := range config.SupportedSaveFormats {
			exts = append(exts, "."+f)
		}
		for _, f := range config.SupportedChartFormats {
			exts = append(exts, "."+f)
		}
		return d.find(d.paths.ExportsDir, exts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLocation, location)
}

// find lists the regular files in dir whose extension is one of exts
func (d *Discovery) find(dir string, exts []string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []FileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	files := []FileInfo{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// skip editor lock files such as ~$book.xlsx
		name := entry.Name()
		if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !hasExt(exts, ext) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Format:  strings.TrimPrefix(ext, "."),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}

func hasExt(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
