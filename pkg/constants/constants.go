// Package constants provides shared constants for the grimcheck application.
package constants

import (
	"math"
	"time"
)

// Numeric constants shared by the consistency engines
const (
	// FuzzValue is the half-width used when dustifying a value
	FuzzValue = 1e-12

	// DefaultThreshold is the digit at which standard rounding goes up
	DefaultThreshold = 5.0

	// DecimalSeparator marks the start of the fractional part of a literal
	DecimalSeparator = "."

	// PercentDigits is the number of extra decimal places a percentage carries
	PercentDigits = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// DefaultItems is the number of items per observation
	DefaultItems = 1

	// MaxExactInteger is the largest float64 below which every integer is
	// representable
	MaxExactInteger = 1 << 53

	// MaxSumOfSquaresCandidates caps how many sums of squares GRIMMER tries
	MaxSumOfSquaresCandidates = 1 << 20
)

// SqrtEpsilon is the square root of the float64 machine epsilon. It is the
// default tolerance for matching reconstructed values.
var SqrtEpsilon = math.Sqrt(math.Nextafter(1, 2) - 1)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "grimcheck.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix prefixes every environment override
	EnvPrefix = "GRIMCHECK"
)

// Simrank defaults
const (
	// DefaultMaxIter is the default trial budget for the rank sampler
	DefaultMaxIter = 100000

	// DefaultSimrankLength is the default number of partitions to collect
	DefaultSimrankLength = 1
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for audit tables (1 MB)
	DefaultMaxUploadSizeBytes int64 = 1024 * 1024

	// DefaultWriteTimeout bounds how long one API response may take
	DefaultWriteTimeout = 30 * time.Second

	// DefaultMaxSimrankIter is the largest trial budget one API request may ask for
	DefaultMaxSimrankIter = 10000000

	// DefaultMaxSimrankRanks is the largest n1+n2 one API request may ask for
	DefaultMaxSimrankRanks = 100000
)
