// README: bench command; black-box checks against a running rideshare API.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rideshare/internal/bench"
	"rideshare/internal/config"
)

var benchCfg bench.Config

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run API, backend and load checks against a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		// backend addresses follow the server config unless given explicitly
		if benchCfg.DSN == "" {
			benchCfg.DSN = cfg.DB.DSN
		}
		if benchCfg.RedisAddr == "" {
			benchCfg.RedisAddr = cfg.Redis.Addr
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), benchCfg.Timeout)
		defer cancel()

		out := cmd.OutOrStdout()
		results := bench.NewRunner(benchCfg, out).RunAll(ctx)
		sum := bench.Summary(results)
		fmt.Fprintln(out, "\n== Summary ==")
		fmt.Fprintf(out, "PASS=%d FAIL=%d SKIP=%d\n", sum[bench.StatusPass], sum[bench.StatusFail], sum[bench.StatusSkip])
		if sum[bench.StatusFail] > 0 {
			return fmt.Errorf("%d bench checks failed", sum[bench.StatusFail])
		}
		return nil
	},
}

func init() {
	f := benchCmd.Flags()
	f.StringVar(&benchCfg.BaseURL, "base-url", "http://localhost:8080", "API base URL")
	f.StringVar(&benchCfg.DSN, "dsn", "", "Postgres DSN; defaults to db.dsn from config")
	f.StringVar(&benchCfg.RedisAddr, "redis", "", "Redis address; defaults to redis.addr from config")
	f.DurationVar(&benchCfg.Timeout, "timeout", 60*time.Second, "total timeout")
	f.IntVar(&benchCfg.Concurrency, "concurrency", 20, "concurrent clients for race and load checks")
	f.DurationVar(&benchCfg.Duration, "duration", 10*time.Second, "load check duration")
	rootCmd.AddCommand(benchCmd)
}
