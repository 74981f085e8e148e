package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"

	"chronoutil/pkg/chrono"
)

type metadata struct {
	clock chrono.Clock
	json  bool
	e     io.Writer
	w     io.Writer
}

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero"

func main() {
	app := newApp(os.Stdout, os.Stderr, chrono.SystemClock{})
	err := app.Run(os.Args)
	if nil != err {
		fmt.Fprintf(app.ErrWriter, "terminated with error: %s\n", err)
		os.Exit(1)
	}
}

var formatFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "format, f",
		Value: chrono.DateAndTime.String(),
		Usage: " output `FORMAT` [date_and_time|date_only|time_only|date_time_and_weekday|date_time_and_short_weekday]",
	},
	cli.BoolFlag{
		Name:  "no-ms",
		Usage: " omit milliseconds",
	},
}

func newApp(w, e io.Writer, clock chrono.Clock) *cli.App {
	app := cli.NewApp()
	app.Name = "chronotool"
	app.Usage = "tick based date and time utility"
	app.Version = version
	app.HideVersion = true

	app.Writer = w
	app.ErrWriter = e

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "json, j",
			Usage: " print results as JSON",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "now",
			Usage:  "print the current date and time",
			Flags:  formatFlags,
			Action: runNow,
		},
		{
			Name:      "parse",
			Usage:     "parse a date and time",
			ArgsUsage: "TEXT",
			Flags:     formatFlags,
			Action:    runParse,
		},
		{
			Name:      "format",
			Usage:     "render a tick count",
			ArgsUsage: "TICKS",
			Flags:     formatFlags,
			Action:    runFormat,
		},
		{
			Name:      "diff",
			Usage:     "time span between two dates",
			ArgsUsage: "FROM TO",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "measures, m",
					Usage: " render as \"1 d 2 h 3 min\"",
				},
			},
			Action: runDiff,
		},
		{
			Name:      "add",
			Usage:     "shift a date by a time span",
			ArgsUsage: "DATE SPAN",
			Flags: append([]cli.Flag{
				cli.BoolFlag{
					Name:  "subtract, s",
					Usage: " subtract instead of add",
				},
			}, formatFlags...),
			Action: runAdd,
		},
		{
			Name:      "leap",
			Usage:     "report whether years are leap years",
			ArgsUsage: "YEAR...",
			Action:    runLeap,
		},
		{
			Name:      "days",
			Usage:     "number of days in a month",
			ArgsUsage: "YEAR MONTH",
			Action:    runDays,
		},
		{
			Name:      "span",
			Usage:     "break a time span into components",
			ArgsUsage: "SPAN",
			Flags: []cli.Flag{
				cli.Float64Flag{
					Name:  "ms",
					Usage: " take the span from `MILLISECONDS` instead of text",
				},
			},
			Action: runSpan,
		},
		{
			Name:      "businessday",
			Usage:     "business day arithmetic",
			ArgsUsage: "DATE",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "holidays, H",
					Usage: " holiday `FILE` (YAML)",
				},
				cli.IntFlag{
					Name:  "add, a",
					Usage: " move by `N` business days",
				},
			}, formatFlags...),
			Action: runBusinessDay,
		},
		{
			Name:      "base64",
			Usage:     "encode or decode base64",
			ArgsUsage: "TEXT",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "decode, d",
					Usage: " decode instead of encode",
				},
			},
			Action: runBase64,
		},
		{
			Name:      "size",
			Usage:     "human readable data size or bitrate",
			ArgsUsage: "BYTES",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "bytes, b",
					Usage: " include the exact byte count",
				},
				cli.Float64Flag{
					Name:  "bitrate",
					Usage: " format `KBITPS` as a bitrate instead",
				},
				cli.BoolFlag{
					Name:  "use-bytes",
					Usage: " bitrate in bytes per second",
				},
			},
			Action: runSize,
		},
		{
			Name:  "copy",
			Usage: "copy bytes between files with progress",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "from",
					Usage: "*source `FILE`",
				},
				cli.StringFlag{
					Name:  "to",
					Usage: "*destination `FILE`",
				},
				cli.Int64Flag{
					Name:  "count, n",
					Value: -1,
					Usage: " copy `N` bytes [default whole file]",
				},
				cli.IntFlag{
					Name:  "buffer",
					Usage: " buffer `SIZE` in bytes",
				},
				cli.BoolFlag{
					Name:  "progress, p",
					Usage: " report progress on stderr",
				},
			},
			Action: runCopy,
		},
	}

	app.Before = func(c *cli.Context) error {
		c.App.Metadata["config"] = &metadata{
			clock: clock,
			json:  c.Bool("json"),
			e:     c.App.ErrWriter,
			w:     c.App.Writer,
		}
		return nil
	}
	return app
}
