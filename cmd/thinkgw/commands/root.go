package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"thinkgw/internal/app"
	"thinkgw/internal/domain"
)

var (
	envFiles      []string
	home          string
	passphrase    string
	allowInsecure bool
	timeout       time.Duration
	role          string
	scopes        string
	logLevel      string

	appCtx *app.Wire
)

// Execute runs the CLI with ctx, which is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "thinkgw",
		Short:        "Device-authenticated gateway connector",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(envFiles...)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg)
			if err := cfg.ResolveHome(); err != nil {
				return err
			}
			log, err := app.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}
			appCtx, err = app.NewWire(cfg, log)
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	pf.StringVar(&home, "home", "", "config dir (default ~/.thinkgw)")
	pf.StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting gateway secrets")
	pf.BoolVar(&allowInsecure, "allow-insecure", false, "allow plaintext ws:// gateways")
	pf.DurationVar(&timeout, "timeout", 0, "connect timeout (default 10s)")
	pf.StringVar(&role, "role", "", "role to authenticate as (default operator)")
	pf.StringVar(&scopes, "scopes", "", "comma separated scopes to request")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default warn)")

	root.AddCommand(gatewayCmd(), fingerprintCmd())
	return root
}

// applyFlags overrides cfg with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *app.Config) {
	f := cmd.Flags()
	if f.Changed("home") {
		cfg.Home = home
	}
	if f.Changed("passphrase") {
		cfg.Passphrase = passphrase
	}
	if f.Changed("allow-insecure") {
		cfg.AllowInsecure = allowInsecure
	}
	if f.Changed("timeout") && timeout > 0 {
		cfg.Timeout = timeout
	}
	if f.Changed("role") && role != "" {
		cfg.Role = domain.Role(role)
	}
	if f.Changed("scopes") {
		if list := app.SplitList(scopes); len(list) > 0 {
			cfg.Scopes = list
		}
	}
	if f.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
}

// connect resolves ref and runs the handshake against it.
func connect(ctx context.Context, ref string) (domain.Instance, domain.ConnectResult, error) {
	inst, err := appCtx.Instances.ResolveInstance(ctx, ref)
	if err != nil {
		return domain.Instance{}, domain.ConnectResult{}, err
	}
	res := appCtx.Handshake.Connect(ctx, domain.ConnectRequest{InstanceID: inst.ID, URL: inst.URL})
	return inst, res, nil
}

// connected is connect that also requires the connected state.
func connected(ctx context.Context, ref string) (domain.Instance, domain.Session, error) {
	inst, res, err := connect(ctx, ref)
	if err != nil {
		return domain.Instance{}, nil, err
	}
	if res.Status.State != domain.StateConnected {
		_ = res.Close()
		return domain.Instance{}, nil, fmt.Errorf("%s: %s", inst.Name, res.Status)
	}
	return inst, res.Session, nil
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
