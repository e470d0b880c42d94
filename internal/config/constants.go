package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "datamod"
	AppTitle   = "Data Modification Tool"
	AppVersion = "1.0.0"

	// Environment variable prefix (DATAMOD_SERVER_PORT, DATAMOD_DEFAULTS_CHART_DPI, ...)
	EnvPrefix = "DATAMOD"

	// Static configuration documents, looked up in the config directory
	DefaultsFileName = "defaults.json"
	UnitsFileName    = "units.json"

	// Input limits
	DefaultMaxRows       = 1_000_000
	DefaultMaxColumns    = 100
	DefaultMaxFileSizeMB = 100

	// Processing defaults
	DefaultDecimalPlaces = 6
	MaxDecimalPlaces     = 15
	DefaultHistoryDepth  = 10

	// Chart export
	DefaultChartDPI     = 300
	ChartWidthInches    = 10
	ChartHeightInches   = 4
	DefaultSaveFormat   = "xlsx"
	DefaultWindowWidth  = 1200
	DefaultWindowHeight = 800

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Timeouts
	DefaultOperationTimeout = 5 * time.Minute
	WebSocketPingPeriod     = 30 * time.Second
	WebSocketPongWait       = 60 * time.Second

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultExportsDir = "data/exports"
	DefaultConfigDir  = "configs"
	DefaultLogsDir    = "logs"

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Timestamp suffix used for exported file names
	ExportTimestampLayout = "20060102_150405"
)

// SupportedInputExtensions lists the file types the loader accepts
var SupportedInputExtensions = []string{".xlsx", ".xls", ".csv", ".txt"}

// SupportedSaveFormats lists the formats the exporter writes data in
var SupportedSaveFormats = []string{"xlsx", "csv"}

// SupportedChartFormats lists the formats charts can be exported in
var SupportedChartFormats = []string{"png", "pdf"}
