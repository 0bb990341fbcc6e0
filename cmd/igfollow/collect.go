package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igfollow/pkg/auth"
	"igfollow/pkg/collector"
	"igfollow/pkg/config"
	errs "igfollow/pkg/errors"
	"igfollow/pkg/instagram"
	"igfollow/pkg/logger"
	"igfollow/pkg/ratelimit"
	"igfollow/pkg/retry"
	"igfollow/pkg/snapshot"
	"igfollow/pkg/ui"
)

// collectOptions holds the collect command flags
type collectOptions struct {
	account       string
	sessionID     string
	csrfToken     string
	kind          string
	output        string
	transport     string
	proxy         string
	timeout       time.Duration
	pageSize      int
	minDelay      int
	maxDelay      int
	rateLimit     int
	maxRetries    int
	resume        bool
	notifications bool
}

func (o *collectOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.account, "account", "a", "", "use a specific stored account")
	f.StringVar(&o.sessionID, "session-id", "", "Instagram sessionid cookie")
	f.StringVar(&o.csrfToken, "csrf-token", "", "Instagram csrftoken cookie")
	f.StringVar(&o.kind, "kind", "", "list to collect: following or followers")
	f.StringVarP(&o.output, "output", "o", "", "snapshot file (default ./following.json)")
	f.StringVar(&o.transport, "transport", "", "request transport: http or stealth")
	f.StringVar(&o.proxy, "proxy", "", "proxy URL for the stealth transport")
	f.DurationVar(&o.timeout, "timeout", 0, "per-request timeout, 0 disables (default 30s)")
	f.IntVar(&o.pageSize, "page-size", 0, "accounts requested per page, 1-200 (default 200)")
	f.IntVar(&o.minDelay, "min-delay", 0, "minimum delay before each page in seconds (default 2)")
	f.IntVar(&o.maxDelay, "max-delay", 0, "maximum delay before each page in seconds (default 4)")
	f.IntVar(&o.rateLimit, "rate-limit", 0, "hard cap on requests per minute, 0 disables")
	f.IntVar(&o.maxRetries, "max-retries", 0, "retry transient failures this many times (default 0)")
	f.BoolVar(&o.resume, "resume", false, "continue from an unfinished snapshot of the same account")
	f.BoolVar(&o.notifications, "notifications", false, "send a desktop notification when the run ends")
}

// flags returns the config overrides for the flags the operator set
func (o *collectOptions) flags(cmd *cobra.Command, g *globalOptions) map[string]interface{} {
	flags := g.flags()
	changed := cmd.Flags().Changed

	strs := map[string]string{
		"session-id": o.sessionID,
		"csrf-token": o.csrfToken,
		"kind":       o.kind,
		"output":     o.output,
		"transport":  o.transport,
		"proxy":      o.proxy,
	}
	for name, v := range strs {
		if changed(name) {
			flags[name] = v
		}
	}

	ints := map[string]int{
		"page-size":   o.pageSize,
		"min-delay":   o.minDelay,
		"max-delay":   o.maxDelay,
		"rate-limit":  o.rateLimit,
		"max-retries": o.maxRetries,
	}
	for name, v := range ints {
		if changed(name) {
			flags[name] = v
		}
	}

	if changed("timeout") {
		flags["timeout"] = o.timeout
	}
	if changed("resume") {
		flags["resume"] = o.resume
	}
	if changed("notifications") {
		flags["notifications"] = o.notifications
	}
	return flags
}

func newCollectCmd(g *globalOptions) *cobra.Command {
	opts := &collectOptions{}
	cmd := &cobra.Command{
		Use:   "collect <username>",
		Short: "Collect the following list of an Instagram profile",
		Long: `Resolve <username> to its account id, then fetch every page of its following
list, waiting a random 2-4 seconds before each page. The snapshot file is
rewritten after every page and once more if a page fails.

Session cookies come from, in order: --account, config or environment
(IGFOLLOW_SESSION_ID, IGFOLLOW_CSRF_TOKEN), the default stored account.`,
		Example: `  # Collect with default settings
  igfollow collect johndoe

  # Same thing
  igfollow johndoe

  # Followers instead, into a different file
  igfollow collect johndoe --kind followers -o followers.json

  # Continue a run that failed part way
  igfollow collect johndoe --resume`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd, g, opts, args)
		},
	}
	opts.register(cmd)
	return cmd
}

func runCollect(cmd *cobra.Command, g *globalOptions, opts *collectOptions, args []string) error {
	var username string
	if len(args) > 0 {
		username = instagram.SanitizeUsername(args[0])
	}
	if username == "" {
		return errs.MissingArgument("username")
	}
	if len(args) > 1 {
		return fmt.Errorf("unexpected arguments after username: %v", args[1:])
	}

	cfg, err := config.Load(g.configFile, opts.flags(cmd, g))
	if err != nil {
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger().WithField("username", username)

	console := g.console()
	console.PrintBanner()
	console.PrintInfo("Target profile", username)

	if err := resolveCredentials(cfg, opts.account, console, log); err != nil {
		return err
	}

	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}

	limiter, err := ratelimit.New(cfg.Collector.MinDelay, cfg.Collector.MaxDelay, cfg.Collector.RequestsPerMinute, ratelimit.WithLogger(log))
	if err != nil {
		return err
	}

	kind, err := instagram.ParseEdgeKind(cfg.Collector.Kind)
	if err != nil {
		return err
	}

	writer := snapshot.NewWriter(cfg.Collector.OutputFile, log)
	tracker := ui.NewPageTracker(console.Out(), username, string(kind), g.verbose)
	notifier := ui.NewNotifier(console.Out(), cfg.Notifications.Enabled)

	c := collector.New(client, limiter, writer, collector.Options{
		Kind:     kind,
		Resume:   cfg.Collector.Resume,
		Progress: tracker,
		Logger:   log,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, err := c.Run(ctx, username)
	if err != nil {
		tracker.Failed(err, writer.Path())
		notifier.SendError("igfollow failed", fmt.Sprintf("@%s: %v", username, err))
		return err
	}

	tracker.Complete(writer.Path())
	notifier.SendSuccess("igfollow complete", fmt.Sprintf("@%s: %d %s accounts", username, len(users), kind))
	return nil
}

// resolveCredentials fills cfg.Instagram with a session from the credential stores
func resolveCredentials(cfg *config.Config, account string, console *ui.Console, log logger.Logger) error {
	manager, err := newCredentialManager()
	if err != nil {
		log.WithError(err).Warn("Credential stores unavailable, using environment only")
		manager = auth.NewManagerWithStores(auth.NewEnvironmentStore())
	}

	source, err := manager.Resolve(account, &cfg.Instagram)
	if err != nil {
		if account != "" {
			return fmt.Errorf("account %q: %w (see 'igfollow auth list')", account, err)
		}
		return fmt.Errorf("no Instagram session found, run 'igfollow auth login' or set IGFOLLOW_SESSION_ID and IGFOLLOW_CSRF_TOKEN: %w", err)
	}

	log.WithField("source", string(source)).Info("Using session credentials")
	if source == auth.SourceAccount {
		console.PrintInfo("Using account", account)
	}
	return nil
}

// newClient builds the Instagram client for cfg
func newClient(cfg *config.Config, log logger.Logger) (*instagram.Client, error) {
	var transport instagram.Transport
	switch cfg.Instagram.Transport {
	case "stealth":
		st, err := instagram.NewStealthTransport(cfg.Instagram.Proxy, cfg.Instagram.Timeout, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create stealth transport: %w", err)
		}
		transport = st
	default:
		if cfg.Instagram.Proxy != "" {
			log.Warn("Proxy is only used by the stealth transport")
		}
		transport = instagram.NewHTTPTransport(cfg.Instagram.Timeout, log)
	}

	opts := []instagram.ClientOption{
		instagram.WithPageSize(cfg.Collector.PageSize),
		instagram.WithRetry(retry.NewConfig(cfg.Collector.MaxRetries, log)),
		instagram.WithLogger(log),
	}
	if cfg.Instagram.BaseURL != "" && cfg.Instagram.BaseURL != config.DefaultBaseURL {
		opts = append(opts, instagram.WithBaseURL(cfg.Instagram.BaseURL))
	}

	return instagram.NewClient(transport, instagram.CredentialsFromConfig(cfg.Instagram), opts...), nil
}
