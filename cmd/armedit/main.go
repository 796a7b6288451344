package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/glesirok/armedit/pkg/command"
	"github.com/glesirok/armedit/pkg/config"
	"github.com/glesirok/armedit/pkg/logging"
	"github.com/glesirok/armedit/pkg/mgmt"
)

var (
	configPath string
	output     string
	debug      bool
	verbose    bool
)

func main() {
	reg, err := registry()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rt := &command.Runtime{}
	rootCmd := &cobra.Command{
		Use:   "armedit",
		Short: "Edit Azure resources with --set/--add/--remove",
		Long: `armedit fetches an Azure resource, applies path-based edits in memory and writes
the whole representation back. Name-or-ID arguments such as --subnet are resolved
to full resource IDs before the edit is applied.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd, rt)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default $HOME/.armedit/config.yaml)")
	flags.String("subscription", "", "Name or ID of subscription.")
	flags.String("store", "", "Use a local YAML resource store instead of Azure Resource Manager")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	flags.StringVarP(&output, "output", "o", "json", "Output format: "+strings.Join(command.OutputFormats, ", "))
	flags.BoolVar(&debug, "debug", false, "Increase logging verbosity to show all debug logs.")
	flags.BoolVar(&verbose, "verbose", false, "Increase logging verbosity.")

	reg.Build(rootCmd, rt)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd.SetArgs(command.GroupArgs(os.Args[1:], reg.GroupFlags()))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, command.FormatError(err))
		stop()
		os.Exit(1)
	}
}

func registry() (*command.Registry, error) {
	reg := command.NewRegistry()
	for _, r := range []*command.Registry{
		command.ResourceCommands(),
		command.NetworkCommands(),
		command.FileCommands(),
		command.IDCommands(),
	} {
		if err := reg.Merge(r); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// setup 加载配置、初始化日志并填充运行时依赖
func setup(cmd *cobra.Command, rt *command.Runtime) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	switch {
	case debug:
		cfg.Logging.Level = "debug"
	case verbose:
		cfg.Logging.Level = "info"
	}

	logger := logging.New(cfg.Logging, os.Stderr)
	cmd.SetContext(logging.NewContext(cmd.Context(), logger))
	logger.Debug("loaded config", "path", configPath, "store", cfg.Store.Path, "endpoint", cfg.ARM.Endpoint)

	rt.Config = cfg
	rt.Output = output
	rt.Services = services(cfg)
	return nil
}

// services 每个订阅只创建一次服务
func services(cfg *config.Config) func(ctx context.Context, subscription string) (mgmt.Service, error) {
	var mu sync.Mutex
	var store *mgmt.LocalStore
	cache := map[string]mgmt.Service{}
	return func(_ context.Context, subscription string) (mgmt.Service, error) {
		mu.Lock()
		defer mu.Unlock()

		if cfg.Store.Path != "" {
			if store == nil {
				s, err := mgmt.NewLocalStore(cfg.Store.Path)
				if err != nil {
					return nil, err
				}
				store = s
			}
			return store, nil
		}

		key := strings.ToLower(subscription)
		if svc, ok := cache[key]; ok {
			return svc, nil
		}
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, errors.WithHint(errors.Wrap(err, "create Azure credential"),
				"sign in with 'az login' or set AZURE_CLIENT_ID, AZURE_TENANT_ID and AZURE_CLIENT_SECRET")
		}
		client, err := mgmt.NewARMClient(cred, mgmt.ARMOptions{
			Endpoint:     cfg.ARM.Endpoint,
			Subscription: subscription,
			APIVersion:   cfg.ARM.APIVersion,
			APIVersions:  cfg.ARM.Versions(),
		})
		if err != nil {
			return nil, err
		}
		cache[key] = client
		return client, nil
	}
}
