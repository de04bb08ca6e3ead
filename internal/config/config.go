// Package config defines the batch configuration and its loading.
//
// Conventions:
// - Flat snake_case koanf keys, one per field.
// - New() returns the defaults; Load layers a YAML file and TREK_ env vars
//   on top of them.
// - Errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/trekhums/internal/adapters/validator"
	"github.com/okian/trekhums/internal/domain/types"
)

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Message directories. Inbound files are picked from IntakeDir, moved to
	// ArchiveDir and answered into OutputDir. Usage reports go to OutputDir.
	IntakeDir  string `koanf:"intake_dir"`
	ArchiveDir string `koanf:"archive_dir"`
	OutputDir  string `koanf:"output_dir"`
	// IntakeExtension filters intake files by suffix; empty accepts all.
	IntakeExtension string `koanf:"intake_extension"`
	// OutputFileMode is the octal permission of written messages.
	OutputFileMode string `koanf:"output_file_mode"`

	// SchemaLocation names the XSD in xsi:schemaLocation of emitted messages.
	SchemaLocation string `koanf:"schema_location"`
	MessageType    string `koanf:"message_type"`
	Project        string `koanf:"project"`
	Classification string `koanf:"classification"`

	// Identity is this system's party id. Counterpart is the party usage
	// reports are sent to, and the receiver of observations whose inbound
	// sender could not be read.
	Identity    string `koanf:"identity"`
	Counterpart string `koanf:"counterpart"`

	ProductID        string `koanf:"product_id"`
	ProductVariantID string `koanf:"product_variant_id"`
	SerialID         string `koanf:"serial_id"`
	TrekLabel        string `koanf:"trek_label"`

	// Redaction window relative to the first track sample, in seconds.
	RedactOffsetSec   int `koanf:"redact_offset_sec"`
	RedactDurationSec int `koanf:"redact_duration_sec"`

	// ValidatorCommand enables external schema validation when set.
	ValidatorCommand   string `koanf:"validator_command"`
	ValidatorSchema    string `koanf:"validator_schema"`
	ValidatorTimeoutMS int    `koanf:"validator_timeout_ms"`
	// ValidatorArgs replaces the xmllint arguments. {schema} and {file} are
	// substituted; {file} is required.
	ValidatorArgs []string `koanf:"validator_args"`

	// Batch metrics export; both optional.
	MetricsTextfile string `koanf:"metrics_textfile"`
	PushgatewayURL  string `koanf:"pushgateway_url"`

	MetricsNamespace string            `koanf:"metrics_namespace"`
	MetricsSubsystem string            `koanf:"metrics_subsystem"`
	MetricsLabels    map[string]string `koanf:"metrics_labels"`
	// MetricsBuckets are the run duration histogram buckets in seconds.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`
}

// New returns the defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		IntakeDir:          "data/intake",
		ArchiveDir:         "data/archive",
		OutputDir:          "data/output",
		IntakeExtension:    ".xml",
		OutputFileMode:     "0644",
		SchemaLocation:     types.DefaultSchema,
		MessageType:        types.TypeUsageReport,
		Project:            "ASD/AIA S5000F Bicycle Example",
		Classification:     types.DefaultClassification,
		ProductID:          "ASD/AIA Bike",
		ProductVariantID:   "Mountain Bike",
		SerialID:           "46",
		TrekLabel:          "chemin de la Simone Aix-en-Provence",
		RedactOffsetSec:    300,
		RedactDurationSec:  953,
		ValidatorTimeoutMS: 10_000,
		MetricsNamespace:   "trekhums",
		MetricsSubsystem:   "batch",
	}
}

// RedactOffset returns the redaction start as a duration.
func (c *Config) RedactOffset() time.Duration {
	return time.Duration(c.RedactOffsetSec) * time.Second
}

// RedactDuration returns the redaction length as a duration.
func (c *Config) RedactDuration() time.Duration {
	return time.Duration(c.RedactDurationSec) * time.Second
}

// ValidatorTimeout returns the validator timeout as a duration.
func (c *Config) ValidatorTimeout() time.Duration {
	return time.Duration(c.ValidatorTimeoutMS) * time.Millisecond
}

// FileMode parses OutputFileMode.
func (c *Config) FileMode() (os.FileMode, error) {
	m, err := strconv.ParseUint(c.OutputFileMode, 8, 32)
	if err != nil || m == 0 || m > 0o777 {
		return 0, fmt.Errorf("%w: output_file_mode %q is not an octal permission", ErrInvalidConfig, c.OutputFileMode)
	}
	return os.FileMode(m), nil
}

// Validate reports every invalid setting in one ErrInvalidConfig.
func (c *Config) Validate() error {
	var bad []string
	required := []struct{ key, val string }{
		{"intake_dir", c.IntakeDir},
		{"archive_dir", c.ArchiveDir},
		{"output_dir", c.OutputDir},
		{"message_type", c.MessageType},
		{"project", c.Project},
		{"classification", c.Classification},
		{"identity", c.Identity},
		{"counterpart", c.Counterpart},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			bad = append(bad, r.key+" must not be empty")
		}
	}
	if c.RedactOffsetSec < 0 || c.RedactDurationSec < 0 {
		bad = append(bad, "redaction window must not be negative")
	}
	if c.ValidatorCommand != "" {
		if c.ValidatorSchema == "" {
			bad = append(bad, "validator_schema is required with validator_command")
		}
		if c.ValidatorTimeoutMS <= 0 {
			bad = append(bad, "validator_timeout_ms must be positive")
		}
		if len(c.ValidatorArgs) > 0 && !containsPlaceholder(c.ValidatorArgs) {
			bad = append(bad, "validator_args must reference "+validator.FilePlaceholder)
		}
	}
	if _, err := c.FileMode(); err != nil {
		bad = append(bad, "output_file_mode must be an octal permission such as 0644")
	}
	bad = append(bad, c.metricsProblems()...)
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(bad, "; "))
	}
	return nil
}

func containsPlaceholder(args []string) bool {
	for _, a := range args {
		if strings.Contains(a, validator.FilePlaceholder) {
			return true
		}
	}
	return false
}

// metricsProblems rejects names and buckets the Prometheus client would
// panic on.
func (c *Config) metricsProblems() []string {
	var bad []string
	parts := []struct{ key, val string }{
		{"metrics_namespace", c.MetricsNamespace},
		{"metrics_subsystem", c.MetricsSubsystem},
	}
	for _, p := range parts {
		if p.val != "" && !metricName.MatchString(p.val) {
			bad = append(bad, p.key+" is not a valid metric name part")
		}
	}
	labelNames := make([]string, 0, len(c.MetricsLabels))
	for name := range c.MetricsLabels {
		labelNames = append(labelNames, name)
	}
	slices.Sort(labelNames)
	for _, name := range labelNames {
		if !metricName.MatchString(name) || strings.HasPrefix(name, "__") {
			bad = append(bad, "metrics_labels key "+strconv.Quote(name)+" is not a valid label name")
		}
	}
	for i := 1; i < len(c.MetricsBuckets); i++ {
		if c.MetricsBuckets[i] <= c.MetricsBuckets[i-1] {
			bad = append(bad, "metrics_buckets must be strictly increasing")
			break
		}
	}
	return bad
}
