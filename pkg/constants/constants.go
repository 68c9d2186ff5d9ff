// Package constants provides shared constants for the estimate-engine application.
package constants

// DateLayout is the format of scheduling dates in request files and the output
// date format of every phase boundary.
const DateLayout = "2006-01-02"

// MonthLayout is the format expected for target sale months.
const MonthLayout = "2006-01"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DaysPerWeek is the number of days in a scheduling week
	DaysPerWeek = 7

	// RoundingUnit is the granularity every monetary total is rounded up to
	RoundingUnit = 5000

	// ItemPrecision is the number of decimals kept on itemized line amounts
	ItemPrecision = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// DefaultCapitalizationRatePct is applied when a request omits the rate
	DefaultCapitalizationRatePct = 2.5

	// NetRentFactor converts gross rent into net rent (10% charges and vacancy)
	NetRentFactor = 0.9

	// NegotiationSpreadPct is the half-width of the negotiation range
	NegotiationSpreadPct = 3.0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format consumed by report renderers
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default request file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example request file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultEnvFile is loaded before configuration when present
	DefaultEnvFile = ".env"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML request files (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)
