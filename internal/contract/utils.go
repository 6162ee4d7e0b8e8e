package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/riskmap/schema"
)

// Risk label constants.
const (
	CriticalValue = "Critical" // Critical value
	HighValue     = "High"     // High value
	ModerateValue = "Moderate" // Moderate value
	LowValue      = "Low"      // Low value
)

// Color variables for console output.
var (
	CriticalColor = color.New(color.FgRed, color.Bold)     // criticalColor represents standard danger.
	HighColor     = color.New(color.FgMagenta, color.Bold) // highColor represents strong, distinct warning.
	ModerateColor = color.New(color.FgYellow)              // moderateColor represents standard caution, not bold.
	LowColor      = color.New(color.FgCyan)                // lowColor represents informational / low-priority signal.
)

// RiskThresholds are the lower bounds of each label on the 0-10 composite scale.
type RiskThresholds struct {
	Critical float64 `json:"critical"`
	High     float64 `json:"high"`
	Moderate float64 `json:"moderate"`
}

// DefaultThresholds label a composite of 8 or more as Critical.
var DefaultThresholds = RiskThresholds{Critical: 8, High: 6, Moderate: 4}

// Validate checks that thresholds lie in [0,10] and strictly descend.
func (t RiskThresholds) Validate() error {
	for name, v := range map[string]float64{"critical": t.Critical, "high": t.High, "moderate": t.Moderate} {
		if v < 0 || v > schema.CompositeScale {
			return fmt.Errorf("%s threshold must be between 0 and %.0f (received %.2f)", name, schema.CompositeScale, v)
		}
	}
	if t.Critical <= t.High || t.High <= t.Moderate {
		return fmt.Errorf("thresholds must satisfy critical > high > moderate (received %.2f, %.2f, %.2f)", t.Critical, t.High, t.Moderate)
	}
	return nil
}

// Label returns the plain label for a score on the 0-10 scale.
func (t RiskThresholds) Label(score float64) string {
	switch {
	case score >= t.Critical:
		return CriticalValue
	case score >= t.High:
		return HighValue
	case score >= t.Moderate:
		return ModerateValue
	default:
		return LowValue
	}
}

// ColorLabel returns Label wrapped in its console color.
func (t RiskThresholds) ColorLabel(score float64) string {
	text := t.Label(score)

	switch text {
	case CriticalValue:
		return CriticalColor.Sprint(text)
	case HighValue:
		return HighColor.Sprint(text)
	case ModerateValue:
		return ModerateColor.Sprint(text)
	default: // "Low"
		return LowColor.Sprint(text)
	}
}

// GetPlainLabel returns a plain text label indicating the risk level
// of a 0-10 score under DefaultThresholds. This is the core logic used for
// CSV, JSON, and table printing.
func GetPlainLabel(score float64) string {
	return DefaultThresholds.Label(score)
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(score float64) string {
	return DefaultThresholds.ColorLabel(score)
}

// RiskScore places column c of row on the 0-10 label scale. The composite is
// used as is; every other column goes through its normalized value.
func RiskScore(row schema.JoinedRow, c schema.Column) float64 {
	switch {
	case c == schema.CompositeScoreColumn:
		return row.Get(c)
	case c.IsNormalized():
		return row.Get(c) * schema.CompositeScale
	default:
		return row.Get(c.Normalized()) * schema.CompositeScale
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogError logs an error to stderr without exiting.
func LogError(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Error %s: %v\n", msg, err)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the result cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".riskmap_cache.db"
	}
	return filepath.Join(homeDir, ".riskmap_cache.db")
}

// GetRunsDBFilePath returns the path to the SQLite DB file for run history.
func GetRunsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".riskmap_runs.db"
	}
	return filepath.Join(homeDir, ".riskmap_runs.db")
}

// TruncateLabel shortens a district label to maxWidth runes with a trailing ellipsis.
// Requires maxWidth > 3 so there is room for "..." and at least one character.
func TruncateLabel(label string, maxWidth int) string {
	runes := []rune(label)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return label
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
