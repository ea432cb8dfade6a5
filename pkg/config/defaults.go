package config

// Default values applied before the config file and environment.
const (
	DefaultLogLevel       = "info"
	DefaultLogJSON        = false
	DefaultInputFormat    = "auto"
	DefaultValidateSchema = true
	DefaultReportFormat   = "table"
	DefaultReportColor    = ColorAuto
	DefaultPlotTitle      = "Reserved ranges"
	DefaultOTLPInsecure   = false
	DefaultSampleRatio    = 0.0
)

// Color modes for terminal reports.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var (
	inputFormats  = []string{"auto", "yaml", "json", "csv"}
	reportFormats = []string{"table", "json", "yaml", "plot"}
	colorModes    = []string{ColorAuto, ColorAlways, ColorNever}
)
