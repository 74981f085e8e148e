package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli"

	"chronoutil/pkg/chrono"
)

var (
	ErrMissingArgument = errors.New("missing argument")
	ErrOutOfRange      = errors.New("result out of range")
	ErrRequiredFlag    = errors.New("required flag missing")
)

func config(c *cli.Context) *metadata {
	return c.App.Metadata["config"].(*metadata)
}

// requireArgs fails unless at least n positional arguments were given.
func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("%w: %s %s", ErrMissingArgument, c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

type rendering struct {
	format chrono.DateTimeOutputFormat
	noMs   bool
}

func renderFlags(c *cli.Context) (rendering, error) {
	f, err := chrono.ParseOutputFormat(c.String("format"))
	if nil != err {
		return rendering{}, err
	}
	return rendering{format: f, noMs: c.Bool("no-ms")}, nil
}

type instantInfo struct {
	Ticks     uint64 `json:"ticks"`
	Text      string `json:"text"`
	Weekday   string `json:"weekday"`
	DayOfYear int    `json:"day_of_year"`
}

func (r rendering) info(dt chrono.DateTime) instantInfo {
	return instantInfo{
		Ticks:     dt.Ticks(),
		Text:      dt.Format(r.format, r.noMs),
		Weekday:   dt.DayOfWeek().String(),
		DayOfYear: dt.DayOfYear(),
	}
}

type spanInfo struct {
	Ticks        int64   `json:"ticks"`
	Normal       string  `json:"normal"`
	Measures     string  `json:"measures"`
	Days         int     `json:"days"`
	Hours        int     `json:"hours"`
	Minutes      int     `json:"minutes"`
	Seconds      int     `json:"seconds"`
	Milliseconds int     `json:"milliseconds"`
	TotalMs      float64 `json:"total_milliseconds"`
}

func newSpanInfo(ts chrono.TimeSpan) spanInfo {
	return spanInfo{
		Ticks:        ts.Ticks(),
		Normal:       ts.Format(chrono.TimeSpanNormal, false),
		Measures:     ts.Format(chrono.TimeSpanWithMeasures, false),
		Days:         ts.Days(),
		Hours:        ts.Hours(),
		Minutes:      ts.Minutes(),
		Seconds:      ts.Seconds(),
		Milliseconds: ts.Milliseconds(),
		TotalMs:      ts.TotalMilliseconds(),
	}
}
