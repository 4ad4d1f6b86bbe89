// Package cmd contém a CLI cobra do guard (serve, config, version).
package cmd

import (
	"fmt"

	"storefront-guard/internal/config"

	"github.com/spf13/cobra"
)

// Preenchido pelo main via ldflags.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{Version: "dev", Commit: "unknown", BuildDate: "unknown"}

func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

type rootOptions struct {
	cfgFile string
}

// NewRootCmd monta a árvore de comandos.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "storefront-guard",
		Short:         "Rate limiting and admin authentication gateway for the storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "",
		"config file (YAML); env vars with prefix "+config.EnvPrefix+"_ override it")

	root.AddCommand(newServeCmd(opts), newConfigCmd(opts), newVersionCmd())
	return root
}

// loadConfig carrega e valida; usado por serve e config.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
