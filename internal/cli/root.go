package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aaronromeo/mailtriage/internal/audit"
	"github.com/aaronromeo/mailtriage/internal/config"
	"github.com/aaronromeo/mailtriage/internal/credential"
	"github.com/aaronromeo/mailtriage/internal/imap"
	"github.com/aaronromeo/mailtriage/internal/imap/sessionmanager"
	"github.com/aaronromeo/mailtriage/internal/prompt"
	"github.com/aaronromeo/mailtriage/internal/triage"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// newTLSConfig is replaced in tests to trust the fixture certificate.
var newTLSConfig = func(host string) *tls.Config {
	return &tls.Config{ServerName: host}
}

// NewRootCmd builds the mailtriage command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mailtriage",
		Short:         "mailtriage searches a mailbox and deletes matching messages after confirmation",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTriage,
	}

	cmd.Flags().String("config", "", "Path to YAML config file (or set "+config.EnvConfigPath+")")
	cmd.Flags().String("mailbox", "", "Mailbox to work on (overrides config)")
	cmd.Flags().Int("history", 0, "Print the N most recent audited deletions and exit")
	cmd.Flags().Bool("plain", false, "Use numbered line prompts instead of interactive forms")
	cmd.Flags().Bool("remember", false, "Store EMAIL_PASSWORD in the system keyring after a successful login")
	cmd.Flags().Bool("verbose", false, "Enable verbose logging")
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runTriage(cmd *cobra.Command, _ []string) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), verbose)

	if err := config.LoadDotEnv(config.DefaultEnvFile); err != nil {
		return err
	}

	cfg, err := config.Load(resolveConfigPath(cmd))
	if err != nil {
		return err
	}
	if mailbox, _ := cmd.Flags().GetString("mailbox"); strings.TrimSpace(mailbox) != "" {
		cfg.Mailbox = strings.TrimSpace(mailbox)
	}

	history, err := cmd.Flags().GetInt("history")
	if err != nil {
		return err
	}
	if history > 0 {
		return printHistory(cmd, cfg, history)
	}

	imapEnv, err := config.IMAPEnvFromEnv(keyringPasswords{})
	if err != nil {
		return err
	}
	logger.Debug(config.Summary(cfg, imapEnv))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client := imap.New(
		sessionmanager.WithAddr(imapEnv.Addr()),
		sessionmanager.WithCreds(imapEnv.User, imapEnv.Pass),
		sessionmanager.WithTLSConfig(newTLSConfig(imapEnv.Host)),
		sessionmanager.WithExpunge(cfg.ExpungeEnabled()),
		sessionmanager.WithLogger(logger),
	)
	if err := client.Connect(); err != nil {
		return err
	}

	if remember, _ := cmd.Flags().GetBool("remember"); remember {
		rememberPassword(logger, imapEnv)
	}

	opts := []triage.WorkflowOption{triage.WithLogger(logger)}
	if cfg.Audit.Path != "" {
		store, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			_ = client.Close()
			return err
		}
		defer store.Close()
		opts = append(opts, triage.WithAudit(store))
	}

	plain, err := cmd.Flags().GetBool("plain")
	if err != nil {
		_ = client.Close()
		return err
	}

	out := cmd.OutOrStdout()
	workflow := triage.NewWorkflow(client, selectPrompter(cmd.InOrStdin(), out, plain), cfg.Mailbox, out, opts...)
	return workflow.Run(ctx)
}

// printHistory lists audited deletions, newest first, without connecting.
func printHistory(cmd *cobra.Command, cfg config.Config, limit int) error {
	if cfg.Audit.Path == "" {
		return &config.ConfigurationError{Err: errors.New("--history needs audit.path in the config file")}
	}
	store, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "no deletions recorded")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s %-9s %s %q deleted %d of %d",
			e.CreatedAt.UTC().Format(time.RFC3339), e.Outcome, e.Mailbox, e.Expression, e.Deleted, e.Candidates)
		if e.Error != "" {
			line += ": " + e.Error
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func resolveConfigPath(cmd *cobra.Command) string {
	cfgPath, _ := cmd.Flags().GetString("config")
	if strings.TrimSpace(cfgPath) == "" {
		cfgPath = os.Getenv(config.EnvConfigPath)
	}
	return strings.TrimSpace(cfgPath)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// selectPrompter uses interactive forms only when stdin is a terminal.
func selectPrompter(in io.Reader, out io.Writer, plain bool) prompt.Prompter {
	if !plain {
		if f, ok := in.(*os.File); ok && isTerminal(f.Fd()) {
			return &prompt.Interactive{Accessible: os.Getenv("ACCESSIBLE") != ""}
		}
	}
	return prompt.NewLine(in, out)
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// keyringPasswords opens the system keyring only when a lookup is needed.
type keyringPasswords struct{}

func (keyringPasswords) Password(account string) (string, error) {
	store, err := credential.Open()
	if err != nil {
		return "", err
	}
	return store.Password(account)
}

func rememberPassword(logger *slog.Logger, env config.IMAPEnv) {
	if !config.PasswordFromEnv() {
		return
	}
	store, err := credential.Open()
	if err == nil {
		err = store.SetPassword(env.User, env.Pass)
	}
	if err != nil {
		logger.Warn("failed to store password in keyring", slog.String("error", err.Error()))
		return
	}
	logger.Info("password stored in keyring", slog.String("account", env.User))
}
