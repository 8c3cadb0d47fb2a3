// Command promtools queries Prometheus instances from the command line:
// one-off batches, health checks, target listings and a periodic watch mode
// that can run as a background daemon.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	daemon "github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xscopehub/promtools/config"
	"github.com/xscopehub/promtools/prometheus"
	"github.com/xscopehub/promtools/query"
)

const version = "0.3.0"

var (
	cfgPath   string
	envPrefix string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "promtools",
		Short:        "Prometheus query and administration toolkit",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&envPrefix, "env-prefix", config.DefaultEnvPrefix, "environment variable prefix")

	rootCmd.AddCommand(newQueryCmd(), newHealthCmd(), newTargetsCmd(), newWatchCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() (*prometheus.Client, error) {
	cfg, err := config.Resolve(cfgPath, envPrefix)
	if err != nil {
		return nil, err
	}
	if cfg.Prometheus == nil {
		return nil, fmt.Errorf("no prometheus configuration found")
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return prometheus.New(*cfg.Prometheus, prometheus.WithLogger(logger))
}

// batchFile is the YAML layout accepted by the query and watch commands.
type batchFile struct {
	Queries []map[string]any `yaml:"queries"`
}

func loadBatch(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file %s: %w", path, err)
	}
	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse batch file %s: %w", path, err)
	}

	inputs := make([]any, len(f.Queries))
	for i, q := range f.Queries {
		inputs[i] = q
	}
	return inputs, nil
}

func newQueryCmd() *cobra.Command {
	var (
		file        string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "query [expr...]",
		Short: "Run PromQL queries, from arguments or a batch file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			inputs := make([]any, 0, len(args))
			for _, a := range args {
				inputs = append(inputs, a)
			}
			if file != "" {
				fromFile, err := loadBatch(file)
				if err != nil {
					return err
				}
				inputs = append(inputs, fromFile...)
			}
			if len(inputs) == 0 {
				return fmt.Errorf("no queries given: pass expressions or --file")
			}

			results, err := client.QueryBatch(cmd.Context(), inputs, prometheus.BatchOptions{
				MaxConcurrent: concurrency,
			})
			if err != nil {
				return err
			}
			printResults(results)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML batch file with a queries list")
	cmd.Flags().IntVar(&concurrency, "concurrency", prometheus.DefaultMaxConcurrent, "max concurrent queries")
	return cmd
}

func printResults(results []query.Result) {
	for _, r := range results {
		name := r.QueryName
		if name == "" {
			name = r.Query
		}
		if !r.Success {
			fmt.Printf("FAIL  %-40s %s (%.3fs)\n", name, r.Error, r.Elapsed.Seconds())
			continue
		}
		fmt.Printf("OK    %-40s %d series (%.3fs)\n", name, len(r.Metrics), r.Elapsed.Seconds())
		for _, m := range r.Metrics {
			if m.Value != nil {
				fmt.Printf("        %s{%s} = %g\n", m.Name, m.LabelString(), *m.Value)
			} else {
				fmt.Printf("        %s{%s} %d samples\n", m.Name, m.LabelString(), len(m.Values))
			}
		}
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health and readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			healthy, err := client.Healthy(cmd.Context())
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			ready, err := client.Ready(cmd.Context())
			if err != nil {
				return fmt.Errorf("readiness check failed: %w", err)
			}

			fmt.Printf("healthy: %s", healthy)
			fmt.Printf("ready:   %s", ready)
			return nil
		},
	}
}

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List active scrape targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			targets, err := client.TargetsDetailed(cmd.Context())
			if err != nil {
				return err
			}

			for _, t := range targets {
				line := fmt.Sprintf("%-8s %-30s job=%s", t.Health, t.Instance, t.Job)
				if t.LastError != "" {
					line += " error=" + t.LastError
				}
				fmt.Println(line)
			}
			fmt.Printf("%d targets\n", len(targets))
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	var (
		file       string
		interval   time.Duration
		daemonMode bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run a query batch on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			if daemonMode {
				cntxt := &daemon.Context{
					PidFileName: "promtools-watch.pid",
					PidFilePerm: 0644,
					LogFileName: "promtools-watch.log",
					LogFilePerm: 0640,
				}
				child, err := cntxt.Reborn()
				if err != nil {
					return err
				}
				if child != nil {
					return nil
				}
				defer cntxt.Release()
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			inputs, err := loadBatch(file)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watch(ctx, client, inputs, interval)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "queries.yaml", "YAML batch file with a queries list")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "time between batch runs")
	cmd.Flags().BoolVar(&daemonMode, "daemon", false, "run in background")
	return cmd
}

func watch(ctx context.Context, client *prometheus.Client, inputs []any, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		results, err := client.QueryBatch(ctx, inputs, prometheus.BatchOptions{})
		if err != nil {
			log.Printf("batch aborted: %v", err)
		} else {
			ok := 0
			for _, r := range results {
				if r.Success {
					ok++
				} else {
					log.Printf("query %s failed: %s", r.QueryName, r.Error)
				}
			}
			log.Printf("batch complete: %d/%d queries succeeded", ok, len(results))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the promtools version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("promtools " + version)
		},
	}
}
