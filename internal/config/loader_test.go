package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/trekhums/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When only the parties come from the environment", func() {
			setParties()
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then everything else keeps its default", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Identity, convey.ShouldEqual, "Bernard RAUST")
				convey.So(cfg.Counterpart, convey.ShouldEqual, "Guillaume OLLIVIER")
				convey.So(cfg.IntakeDir, convey.ShouldEqual, "data/intake")
				convey.So(cfg.RedactDurationSec, convey.ShouldEqual, 953)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(t, `
identity: "Bernard RAUST"
counterpart: "Guillaume OLLIVIER"
intake_dir: /var/spool/trek/in
redact_offset_sec: 60
validator_command: xmllint
validator_schema: /opt/s5000f/s5000f_2-0_isfdataset.xsd
`)

			cfg, err := config.Load(ctx, tmpFile)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.IntakeDir, convey.ShouldEqual, "/var/spool/trek/in")
				convey.So(cfg.RedactOffsetSec, convey.ShouldEqual, 60)
				convey.So(cfg.ValidatorCommand, convey.ShouldEqual, "xmllint")
				convey.So(cfg.OutputDir, convey.ShouldEqual, "data/output") // From defaults
			})
		})

		convey.Convey("When the file sets store, validator and metrics options", func() {
			tmpFile := createTempConfigFile(t, `
identity: a
counterpart: b
intake_extension: .s5k
output_file_mode: "0600"
validator_command: xmllint
validator_schema: s.xsd
validator_args: ["--noout", "--schema", "{schema}", "{file}"]
metrics_namespace: bike
metrics_labels:
  site: aix
metrics_buckets: [0.5, 5]
`)

			cfg, err := config.Load(ctx, tmpFile)

			convey.Convey("Then every option is read", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.IntakeExtension, convey.ShouldEqual, ".s5k")
				convey.So(cfg.OutputFileMode, convey.ShouldEqual, "0600")
				convey.So(cfg.ValidatorArgs, convey.ShouldResemble, []string{"--noout", "--schema", "{schema}", "{file}"})
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "bike")
				convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "batch")
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"site": "aix"})
				convey.So(cfg.MetricsBuckets, convey.ShouldResemble, []float64{0.5, 5})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(t, `
identity: "from file"
counterpart: "from file"
log_level: debug
`)
			_ = os.Setenv("TREK_CONFIG", tmpFile)
			_ = os.Setenv("TREK_IDENTITY", "from env")
			_ = os.Setenv("TREK_REDACT_DURATION_SEC", "10")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Identity, convey.ShouldEqual, "from env")     // Overridden by env
				convey.So(cfg.Counterpart, convey.ShouldEqual, "from file") // From file
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")        // From file
				convey.So(cfg.RedactDurationSec, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)

			cfg, err := config.Load(ctx, tmpFile)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_, err := config.Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			setParties()
			_ = os.Setenv("TREK_REDACT_OFFSET_SEC", "soon")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the parties are missing", func() {
			_, err := config.Load(ctx, "")
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func setParties() {
	_ = os.Setenv("TREK_IDENTITY", "Bernard RAUST")
	_ = os.Setenv("TREK_COUNTERPART", "Guillaume OLLIVIER")
}

// clearConfigEnvVars removes every TREK_ variable the tests set.
func clearConfigEnvVars() {
	for _, k := range []string{
		"TREK_CONFIG", "TREK_IDENTITY", "TREK_COUNTERPART",
		"TREK_REDACT_DURATION_SEC", "TREK_REDACT_OFFSET_SEC",
	} {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "trekhums.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
