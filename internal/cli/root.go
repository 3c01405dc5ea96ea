// Package cli is the reciclo command line. Each command drives one operation of the client
// services; notifications go to stderr and results to stdout. A command whose operation fails
// exits with ErrFailed after the failure has been shown.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"reciclo/internal/app"
	"reciclo/internal/config"
	"reciclo/internal/pkg/logger"
	"reciclo/internal/pkg/notify"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrFailed is returned when an operation failed and the user was already told why.
var ErrFailed = errors.New("cli: operation failed")

// runner holds the state shared by the commands of one invocation.
type runner struct {
	cfg      app.Config
	logLevel string
	app      *app.App
}

// Execute runs the command line with args and the given streams.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	r := &runner{cfg: app.ConfigFromEnv(), logLevel: config.LogLevel}
	defer r.close()

	root := r.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func (r *runner) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:               "reciclo",
		Short:             "Recycle bottles, share 3D models and trade coins on ReCiclo",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: r.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&r.cfg.APIBaseURL, "api", r.cfg.APIBaseURL, "API base URL")
	flags.StringVar(&r.cfg.SessionDSN, "session", r.cfg.SessionDSN, "SQLite file holding the session")
	flags.StringVar(&r.cfg.Profile, "profile", r.cfg.Profile, "session profile when the session is kept in PostgreSQL")
	flags.StringVar(&r.cfg.DownloadDir, "download-dir", r.cfg.DownloadDir, "directory receiving model downloads")
	flags.DurationVar(&r.cfg.RequestTimeout, "timeout", r.cfg.RequestTimeout, "timeout of each API request")
	flags.StringVar(&r.logLevel, "log-level", r.logLevel, "log level")

	root.AddCommand(
		r.loginCommand(),
		r.registerCommand(),
		r.logoutCommand(),
		r.whoamiCommand(),
		r.profileCommand(),
		r.dashboardCommand(),
		r.recycleCommand(),
		r.modelsCommand(),
		r.marketCommand(),
	)
	return root
}

// skipRestore marks commands that must not verify the stored session against the API first.
const skipRestore = "skip-restore"

// setup builds the client and restores the stored session before any command runs.
func (r *runner) setup(cmd *cobra.Command, _ []string) error {
	l, err := logger.CreateLogger(r.logLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	a, err := app.NewApp(cmd.Context(), r.cfg, notify.NewConsole(cmd.ErrOrStderr()), l)
	if err != nil {
		return err
	}
	r.app = a

	if _, ok := cmd.Annotations[skipRestore]; ok {
		return nil
	}
	if err := a.Start(cmd.Context()); err != nil {
		l.Warn("stored session could not be restored", zap.Error(err))
	}
	return nil
}

func (r *runner) close() {
	if r.app != nil {
		r.app.Close()
	}
}

// result turns the outcome of a service call into the command's error.
func result(ok bool) error {
	if !ok {
		return ErrFailed
	}
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}
