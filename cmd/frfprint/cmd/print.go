// Copyright (C) 2023 by Posit Software, PBC
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	frf "github.com/rstudio/flat-record-format"
)

var (
	layoutPath string
	recordName string
	multiName  string
	binary     bool
	logLevel   string
)

func init() {
	PrintCmd.Flags().StringVar(&layoutPath, "layout", "", "YAML layout file")
	PrintCmd.Flags().StringVar(&recordName, "record", "", "name of the record layout to print lines with")
	PrintCmd.Flags().StringVar(&multiName, "multiple", "", "name of the composite layout to print lines with")
	PrintCmd.Flags().BoolVar(&binary, "binary", false, "frame input on the sync pattern of the layout file")
	PrintCmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	_ = PrintCmd.MarkFlagRequired("layout")
}

var PrintCmd = &cobra.Command{
	Use:   "frfprint [flags] FILE...",
	Short: "Print flat-file records",
	Long:  "Print the records of positional, delimited, or binary-framed files using a YAML layout file.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (recordName == "") == (multiName == "") {
			return fmt.Errorf("exactly one of --record or --multiple is required")
		}

		logger, err := newLogger(cmd.ErrOrStderr(), logLevel)
		if err != nil {
			return err
		}

		for _, f := range args {
			_, err := os.Stat(f)
			if err != nil {
				return fmt.Errorf("unable to read %s: %s", f, err)
			}
		}

		config, err := frf.LoadConfig(layoutPath)
		if err != nil {
			return fmt.Errorf("unable to load layout file %s: %s", layoutPath, err)
		}
		reg, err := config.Registry(frf.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("invalid layout file %s: %s", layoutPath, err)
		}

		var s *frf.Schema
		var ms *frf.MultipleSchema
		if recordName != "" {
			var ok bool
			if s, ok = reg.Named(recordName); !ok {
				return fmt.Errorf("no record layout named %s in %s", recordName, layoutPath)
			}
		} else {
			var ok bool
			if ms, ok = reg.NamedMultiple(multiName); !ok {
				return fmt.Errorf("no composite layout named %s in %s", multiName, layoutPath)
			}
		}

		opts := []frf.Option{frf.WithLogger(logger)}
		var pattern []byte
		if binary {
			pattern, err = config.Binary.SyncPattern()
			if err != nil {
				return err
			}
			bopts, err := config.Binary.Options()
			if err != nil {
				return err
			}
			opts = append(opts, bopts...)
		}

		for _, f := range args {
			in, err := os.Open(f)
			if err != nil {
				return fmt.Errorf("unable to open %s for reading: %s", f, err)
			}
			err = printFile(cmd.OutOrStdout(), in, pattern, s, ms, opts)
			in.Close()
			if err != nil {
				return fmt.Errorf("error printing records from %s: %s", f, err)
			}
		}

		return nil
	},
}

func printFile(w io.Writer, r io.Reader, pattern []byte, s *frf.Schema, ms *frf.MultipleSchema, opts []frf.Option) error {
	switch {
	case pattern != nil:
		return frf.PrintBinary(w, r, pattern, s, ms, opts...)
	case s != nil:
		return frf.Print(w, r, s)
	default:
		return frf.PrintMultiple(w, r, ms, opts...)
	}
}

func newLogger(w io.Writer, lvl string) (log.Logger, error) {
	var allow level.Option
	switch strings.ToLower(lvl) {
	case "debug":
		allow = level.AllowDebug()
	case "info":
		allow = level.AllowInfo()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		return nil, fmt.Errorf("invalid log level %q", lvl)
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	return level.NewFilter(logger, allow), nil
}
