// Package main provides the validlib binary: a CLI over the validation
// service plus a JSON-RPC stdio server for subprocess embedding.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/judepayne/validlib/pkg/config"
	"github.com/judepayne/validlib/pkg/entity"
	"github.com/judepayne/validlib/pkg/server"
	"github.com/judepayne/validlib/pkg/service"
)

const Version = "0.1.0"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:     "validlib",
		Short:   "Rule-based validation for business entities",
		Version: Version,
		Long: `validlib validates business entities (loans, facilities, deals)
against configurable hierarchical rulesets, with schema-version aware
entity adapters.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "business configuration file (default $VALIDLIB_CONFIG)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR")

	cmd.AddCommand(
		a.validateCmd(),
		a.batchCmd(),
		a.rulesCmd(),
		a.rulesetsCmd(),
		a.serveCmd(),
	)
	return cmd
}

// newService builds the service from environment configuration with
// flag overrides applied.
func (a *app) newService() (*service.Service, *config.Config, error) {
	cfg := config.Load()
	if a.configPath != "" {
		cfg.ConfigPath = a.configPath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: service.ParseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	svc, err := service.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

func (a *app) validateCmd() *cobra.Command {
	var rulesetName, entityType string

	cmd := &cobra.Command{
		Use:   "validate <entity.json>",
		Short: "Validate one entity and print the result hierarchy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			data, err := readEntity(args[0])
			if err != nil {
				return err
			}
			results, err := svc.Validate(cmd.Context(), entityType, data, rulesetName)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVar(&rulesetName, "ruleset", "quick", "ruleset to run")
	cmd.Flags().StringVar(&entityType, "entity-type", "", "entity type (derived from $schema when omitted)")
	return cmd
}

func (a *app) batchCmd() *cobra.Command {
	var rulesetName string
	var idFields []string

	cmd := &cobra.Command{
		Use:   "batch <entities.json|uri>",
		Short: "Validate a file of entities as a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			uri, err := toFileURI(args[0])
			if err != nil {
				return err
			}
			results, err := svc.ValidateBatchFile(cmd.Context(), uri, idFields, rulesetName)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVar(&rulesetName, "ruleset", "quick", "ruleset to run")
	cmd.Flags().StringSliceVar(&idFields, "id-fields", []string{"id"}, "entity fields joined into the result identifier")
	return cmd
}

func (a *app) rulesCmd() *cobra.Command {
	var rulesetName, entityType string

	cmd := &cobra.Command{
		Use:   "rules <entity.json>",
		Short: "Discover the rules a ruleset would run against an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			data, err := readEntity(args[0])
			if err != nil {
				return err
			}
			infos, err := svc.DiscoverRules(entityType, data, rulesetName)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), infos)
		},
	}
	cmd.Flags().StringVar(&rulesetName, "ruleset", "quick", "ruleset to inspect")
	cmd.Flags().StringVar(&entityType, "entity-type", "", "entity type (derived from $schema when omitted)")
	return cmd
}

func (a *app) rulesetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rulesets",
		Short: "List configured rulesets with metadata and statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.newService()
			if err != nil {
				return err
			}
			defer svc.Close()
			return printJSON(cmd.OutOrStdout(), svc.DiscoverRulesets())
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve JSON-RPC 2.0 over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cfg, err := a.newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			if cfg.WatchConfig {
				if err := svc.Watch(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			slog.Info("serving JSON-RPC on stdio", "version", Version)
			return server.New(svc, slog.Default()).Serve(ctx)
		},
	}
}

func readEntity(path string) (entity.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data entity.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode entity %s: %w", path, err)
	}
	return data, nil
}

// toFileURI passes URIs through and turns bare paths into file:// URIs.
func toFileURI(arg string) (string, error) {
	if u, err := url.Parse(arg); err == nil && u.Scheme != "" && !strings.HasPrefix(arg, "/") {
		return arg, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", err
	}
	return "file://" + abs, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
