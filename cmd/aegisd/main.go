package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"

	"github.com/reguflow/aegis/engine"
	"github.com/reguflow/aegis/fakedata"
	"github.com/reguflow/aegis/oracle"
	"github.com/reguflow/aegis/recordstore"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "aegisd",
		Usage:   "compliance enforcement and fraud detection daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for record persistence; empty for in-process store",
			EnvVars: []string{"AEGIS_REDIS_URL"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		seedCmd,
	}

	return app.Run(args)
}

func setupStore(cctx *cli.Context) (recordstore.AgentStore, recordstore.CustomerStore, error) {
	if u := cctx.String("redis-url"); u != "" {
		s, err := recordstore.NewRedisStore(u)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	s := recordstore.NewMemStore()
	return s, s, nil
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3899",
			EnvVars: []string{"AEGIS_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3898",
			EnvVars: []string{"AEGIS_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "oracle-host",
			Usage:   "base URL of the policy oracle API (OpenAI-compatible)",
			Value:   "https://api.aimlapi.com/v1",
			EnvVars: []string{"AEGIS_ORACLE_HOST"},
		},
		&cli.StringFlag{
			Name:    "oracle-api-key",
			EnvVars: []string{"AEGIS_ORACLE_API_KEY", "AIML_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "oracle-model",
			Value:   "gpt-4o-mini",
			EnvVars: []string{"AEGIS_ORACLE_MODEL"},
		},
		&cli.DurationFlag{
			Name:    "oracle-timeout",
			Usage:   "per-call budget for oracle requests before the fallback policy applies",
			Value:   15 * time.Second,
			EnvVars: []string{"AEGIS_ORACLE_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "oracle-rate-limit",
			Usage:   "max oracle requests per second",
			Value:   5,
			EnvVars: []string{"AEGIS_ORACLE_RATE_LIMIT"},
		},
		&cli.StringFlag{
			Name:    "oracle-fallback",
			Usage:   "behavior when the oracle is unavailable: fail-open or fail-closed",
			Value:   string(engine.FailClosed),
			EnvVars: []string{"AEGIS_ORACLE_FALLBACK"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		fallback, err := engine.ParseFallbackPolicy(cctx.String("oracle-fallback"))
		if err != nil {
			return err
		}

		agents, customers, err := setupStore(cctx)
		if err != nil {
			return err
		}

		srv, err := NewServer(Config{
			Logger:        logger,
			Agents:        agents,
			Customers:     customers,
			Oracle:        oracle.NewClient(cctx.String("oracle-host"), cctx.String("oracle-api-key"), cctx.String("oracle-model"), cctx.Int("oracle-rate-limit")),
			Fallback:      fallback,
			OracleTimeout: cctx.Duration("oracle-timeout"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				logger.Error("failed to start metrics endpoint", "err", err)
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return srv.RunAPI(ctx, cctx.String("bind"))
	},
}

var seedCmd = &cli.Command{
	Name:  "seed",
	Usage: "populate the record store with a synthetic population",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:  "seed",
			Value: 42,
		},
		&cli.IntFlag{
			Name:  "customers",
			Usage: "number of baseline customers, before injected fraud signatures",
			Value: 250,
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.Default()

		agents, customers, err := setupStore(cctx)
		if err != nil {
			return err
		}
		if cctx.String("redis-url") == "" {
			logger.Warn("seeding an in-process store; data is gone when this command exits")
		}

		ctx := context.Background()
		if err := fakedata.Seed(ctx, agents, customers, cctx.Int64("seed"), cctx.Int("customers")); err != nil {
			return err
		}
		logger.Info("seeded record store", "baseline", cctx.Int("customers"))
		return nil
	},
}
