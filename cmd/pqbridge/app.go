package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/datawarehouse/dw-parquet-go/internal/config"
	"github.com/datawarehouse/dw-parquet-go/internal/logger"
	"github.com/datawarehouse/dw-parquet-go/pqbridge"
)

// opener builds a bridge for the given storage settings.
type opener func(ctx context.Context, s config.StorageConfig) (*pqbridge.Bridge, error)

// session carries the bridge shared by one invocation. Keys given as
// s3:// URIs for another bucket reuse its S3 client through ForBucket.
type session struct {
	cfg  *config.Config
	open opener
	base *pqbridge.Bridge
}

func newApp(cfg *config.Config, open opener) *cli.App {
	s := &session{cfg: cfg, open: open}

	return &cli.App{
		Name:  "pqbridge",
		Usage: "Move Parquet tables between S3 and local files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "bucket",
				Usage:   "Bucket addressed by plain keys",
				Value:   cfg.Storage.Bucket,
				EnvVars: []string{"PQBRIDGE_BUCKET"},
			},
			&cli.StringFlag{
				Name:    "region",
				Usage:   "AWS region",
				Value:   cfg.Storage.Region,
				EnvVars: []string{"AWS_REGION"},
			},
			&cli.StringFlag{
				Name:    "endpoint",
				Usage:   "Base URL of an S3-compatible server",
				Value:   cfg.Storage.Endpoint,
				EnvVars: []string{"PQBRIDGE_ENDPOINT"},
			},
			&cli.BoolFlag{
				Name:  "path-style",
				Usage: "Use path-style bucket addressing",
				Value: cfg.Storage.UsePathStyle,
			},
			&cli.StringFlag{
				Name:  "scratch-dir",
				Usage: "Spool transfers through temporary files in this directory",
				Value: cfg.Storage.ScratchDir,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   cfg.Log.Level,
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			if c.IsSet("log-level") {
				logger.SetLevel(c.String("log-level"))
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List table keys under a prefix",
				ArgsUsage: "[prefix]",
				Action:    s.list,
			},
			{
				Name:      "cat",
				Usage:     "Print a table as CSV",
				ArgsUsage: "<key>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "columns",
						Usage: "Comma-separated columns to read",
					},
					&cli.Int64Flag{
						Name:  "limit",
						Usage: "Print at most this many rows (0 for all)",
					},
				},
				Action: s.cat,
			},
			{
				Name:      "get",
				Usage:     "Download a table to a local Parquet file",
				ArgsUsage: "<key> <file>",
				Action:    s.get,
			},
			{
				Name:      "put",
				Usage:     "Upload a local Parquet or CSV file as a Parquet table",
				ArgsUsage: "<file> <key>",
				Action:    s.put,
			},
			{
				Name:      "stat",
				Usage:     "Show object and footer metadata of a table",
				ArgsUsage: "<key>",
				Action:    s.stat,
			},
			{
				Name:      "rm",
				Usage:     "Delete a table",
				ArgsUsage: "<key>",
				Action:    s.remove,
			},
		},
	}
}

// storage merges the global flags over the loaded configuration.
func (s *session) storage(c *cli.Context) config.StorageConfig {
	st := s.cfg.Storage
	st.Bucket = c.String("bucket")
	st.Region = c.String("region")
	st.Endpoint = c.String("endpoint")
	st.UsePathStyle = c.Bool("path-style")
	st.ScratchDir = c.String("scratch-dir")
	return st
}

// resolve returns the bridge and key addressed by arg, which is either a
// plain key in --bucket or an s3:// URI.
func (s *session) resolve(c *cli.Context, arg string) (*pqbridge.Bridge, string, error) {
	bucket, key := c.String("bucket"), arg
	if pqbridge.IsURI(arg) {
		var err error
		if bucket, key, err = pqbridge.ParseURI(arg); err != nil {
			return nil, "", err
		}
	}
	if bucket == "" {
		return nil, "", fmt.Errorf("no bucket for %q, set --bucket or use an s3:// URI: %w", arg, pqbridge.ErrInvalidInput)
	}

	if s.base == nil {
		st := s.storage(c)
		st.Bucket = bucket
		b, err := s.open(c.Context, st)
		if err != nil {
			return nil, "", err
		}
		s.base = b
	}
	if s.base.Bucket() != bucket {
		return s.base.ForBucket(bucket), key, nil
	}
	return s.base, key, nil
}

func requireArgs(c *cli.Context, n int) error {
	if c.Args().Len() != n {
		return fmt.Errorf("%s: expected %d argument(s), usage: %s %s: %w",
			c.Command.Name, n, c.Command.Name, c.Command.ArgsUsage, pqbridge.ErrInvalidInput)
	}
	return nil
}
