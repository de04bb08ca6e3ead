package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/trekhums/internal/adapters/repository"
	"github.com/okian/trekhums/internal/adapters/validator"
	service "github.com/okian/trekhums/internal/app"
	"github.com/okian/trekhums/internal/config"
	"github.com/okian/trekhums/internal/domain/track"
	"github.com/okian/trekhums/pkg/logger"
	"github.com/okian/trekhums/pkg/metrics"
)

const pushTimeout = 5 * time.Second

// runState is shared by the subcommands of one invocation.
type runState struct {
	cfgFile  string
	logLevel string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	st := &runState{}
	root := &cobra.Command{
		Use:   "trekhums",
		Short: "S5000F usage reports for bicycle treks",
		Long: `trekhums turns a GPX bicycle trek into an S5000F "Report Usage Information"
(UC50902) message, and answers inbound S5000F messages with an acknowledgment
or an observation.

Each invocation is one batch pass. Run a single instance per intake directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&st.cfgFile, "config", "", "config file (default: $"+config.EnvFile+")")
	root.PersistentFlags().StringVar(&st.logLevel, "log-level", "", "override log_level: debug, info, warn, error")

	root.AddCommand(newReportCmd(st), newAnswerCmd(st))
	return root
}

func (st *runState) init(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context(), st.cfgFile)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "failed to load config: "+err.Error())
		return err
	}
	if st.logLevel != "" {
		cfg.LogLevel = st.logLevel
	}
	if err := logger.Init(
		logger.WithFormat(cfg.LogFormat),
		logger.WithLevel(cfg.LogLevel),
		logger.WithWriter(cmd.OutOrStdout()),
	); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "failed to initialize logging: "+err.Error())
		return err
	}
	metrics.Setup(
		metrics.WithNames(cfg.MetricsNamespace, cfg.MetricsSubsystem),
		metrics.WithConstLabels(cfg.MetricsLabels),
		metrics.WithRunBuckets(cfg.MetricsBuckets...),
	)
	st.cfg = cfg
	return nil
}

func (st *runState) service() *service.Service {
	cfg := st.cfg
	mode, _ := cfg.FileMode() // checked by config.Validate
	store := repository.NewDirStore(cfg.IntakeDir, cfg.ArchiveDir, cfg.OutputDir,
		repository.WithExtension(cfg.IntakeExtension),
		repository.WithFileMode(mode),
	)
	opts := []service.Option{
		service.WithLogger(logger.Get()),
		service.WithStore(store),
		service.WithSchemaLocation(cfg.SchemaLocation),
		service.WithRedaction(track.Window{Offset: cfg.RedactOffset(), Duration: cfg.RedactDuration()}),
		service.WithProfile(service.Profile{
			MessageType:    cfg.MessageType,
			Project:        cfg.Project,
			Identity:       cfg.Identity,
			Counterpart:    cfg.Counterpart,
			Classification: cfg.Classification,
			ProductID:      cfg.ProductID,
			VariantID:      cfg.ProductVariantID,
			SerialID:       cfg.SerialID,
			TrekLabel:      cfg.TrekLabel,
		}),
	}
	if cfg.ValidatorCommand != "" {
		opts = append(opts, service.WithValidator(validator.NewCommand(
			cfg.ValidatorCommand, cfg.ValidatorSchema,
			validator.WithTimeout(cfg.ValidatorTimeout()),
			validator.WithArgs(cfg.ValidatorArgs...),
		)))
	}
	return service.New(opts...)
}

// run executes one pipeline, records its duration and exports metrics.
func (st *runState) run(cmd *cobra.Command, command string,
	fn func(context.Context, *service.Service) (service.Outcome, error)) error {
	ctx := cmd.Context()
	log := logger.Named(command)
	svc := st.service()

	start := time.Now()
	out, err := fn(ctx, svc)
	metrics.RecordRun(command, time.Since(start), err == nil)
	st.export(ctx, log, command)

	if err != nil {
		log.Error(ctx, command+" failed", logger.String("run_id", svc.RunID()), logger.Error(err))
		return err
	}
	printOutcome(cmd.ErrOrStderr(), out)
	return nil
}

// export writes and pushes metrics when configured. Failures are logged only.
func (st *runState) export(ctx context.Context, log logger.Logger, command string) {
	if path := st.cfg.MetricsTextfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			log.Warn(ctx, "metrics textfile not written", logger.Error(err))
		}
	}
	if url := st.cfg.PushgatewayURL; url != "" {
		pctx, cancel := context.WithTimeout(ctx, pushTimeout)
		defer cancel()
		if err := metrics.Push(pctx, url, "trekhums_"+command); err != nil {
			log.Warn(ctx, "metrics not pushed", logger.Error(err))
		}
	}
}

func printOutcome(w io.Writer, out service.Outcome) {
	switch {
	case out.Empty:
		fmt.Fprintln(w, "nothing to answer")
	case out.Path == "":
		fmt.Fprintf(w, "%s: %s archived without answer (%s)\n", out.Command, out.Input, out.State)
	case out.Resend:
		fmt.Fprintf(w, "%s: %s (resend)\n", out.Command, out.Path)
	default:
		fmt.Fprintf(w, "%s: %s\n", out.Command, out.Path)
	}
}
