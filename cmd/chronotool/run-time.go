package main

import (
	"strconv"
	"strings"

	"github.com/urfave/cli"

	"chronoutil/internal/businessday"
	"chronoutil/pkg/chrono"
	"chronoutil/pkg/conversion"
)

func runNow(c *cli.Context) error {
	m := config(c)
	r, err := renderFlags(c)
	if nil != err {
		return err
	}
	now := chrono.NowFrom(m.clock)
	return output(m, now.Format(r.format, r.noMs), r.info(now))
}

func runParse(c *cli.Context) error {
	m := config(c)
	if err := requireArgs(c, 1); nil != err {
		return err
	}
	r, err := renderFlags(c)
	if nil != err {
		return err
	}
	dt, err := chrono.ParseDateTime(strings.Join(c.Args(), " "))
	if nil != err {
		return err
	}
	return output(m, dt.Format(r.format, r.noMs), r.info(dt))
}

func runFormat(c *cli.Context) error {
	m := config(c)
	if err := requireArgs(c, 1); nil != err {
		return err
	}
	r, err := renderFlags(c)
	if nil != err {
		return err
	}
	ticks, err := conversion.StringToNumber[uint64](c.Args().First(), 10)
	if nil != err {
		return err
	}
	if ticks > chrono.MaxTicks {
		return ErrOutOfRange
	}
	dt := chrono.DateTime(ticks)
	return output(m, dt.Format(r.format, r.noMs), r.info(dt))
}

func runDiff(c *cli.Context) error {
	m := config(c)
	if err := requireArgs(c, 2); nil != err {
		return err
	}
	from, err := chrono.ParseDateTime(c.Args().Get(0))
	if nil != err {
		return err
	}
	to, err := chrono.ParseDateTime(c.Args().Get(1))
	if nil != err {
		return err
	}
	ts := to.Sub(from)
	format := chrono.TimeSpanNormal
	if c.Bool("measures") {
		format = chrono.TimeSpanWithMeasures
	}
	return output(m, ts.Format(format, false), newSpanInfo(ts))
}

func runAdd(c *cli.Context) error {
	m := config(c)
	if err := requireArgs(c, 2); nil != err {
		return err
	}
	r, err := renderFlags(c)
	if nil != err {
		return err
	}
	dt, err := chrono.ParseDateTime(c.Args().Get(0))
	if nil != err {
		return err
	}
	ts, err := chrono.ParseTimeSpan(c.Args().Get(1))
	if nil != err {
		return err
	}
	if c.Bool("subtract") {
		dt = dt.Subtract(ts)
	} else {
		dt = dt.Add(ts)
	}
	if dt.IsNull() {
		return ErrOutOfRange
	}
	return output(m, dt.Format(r.format, r.noMs), r.info(dt))
}

func runLeap(c *cli.Context) error {
	m := config(c)
	if err := requireArgs(c, 1); nil != err {
		return err
	}
	type leap struct {
		Year int  `json:"year"`
		Leap bool `json:"leap"`
	}
	result := make([]leap, 0, c.NArg())
	lines := make([]string, 0, c.NArg())
	for _, arg := range c.Args() {
		year, err := conversion.StringToNumber[int](arg, 10)
		if nil != err {
			return err
		}
		l := leap{Year: year, Leap: chrono.IsLeapYear(year)}
		result = append(result, l)
		lines = append(lines, arg+": "+strconv.FormatBool(l.Leap))
	}
	return output(m, strings.Join(lines, "\n"), result)
}

func runDays(c *cli.Context) error {
	m := config(c)
	if err := requireArgs(c, 2); nil != err {
		return err
	}
	year, err := conversion.StringToNumber[int](c.Args().Get(0), 10)
	if nil != err {
		return err
	}
	month, err := conversion.StringToNumber[int](c.Args().Get(1), 10)
	if nil != err {
		return err
	}
	if _, err := chrono.FromDateChecked(year, month, 1); nil != err {
		return err
	}
	n := chrono.DaysInMonth(year, month)
	out := struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		Days  int `json:"days"`
	}{year, month, n}
	return output(m, conversion.Itoa(n), out)
}

func runSpan(c *cli.Context) error {
	m := config(c)
	var ts chrono.TimeSpan
	if c.IsSet("ms") {
		ts = chrono.FromMilliseconds(c.Float64("ms"))
	} else {
		if err := requireArgs(c, 1); nil != err {
			return err
		}
		var err error
		if ts, err = chrono.ParseTimeSpan(c.Args().First()); nil != err {
			return err
		}
	}
	info := newSpanInfo(ts)
	return output(m, info.Normal+" ("+info.Measures+")", info)
}

func runBusinessDay(c *cli.Context) error {
	m := config(c)
	if err := requireArgs(c, 1); nil != err {
		return err
	}
	r, err := renderFlags(c)
	if nil != err {
		return err
	}
	dt, err := chrono.ParseDateTime(c.Args().First())
	if nil != err {
		return err
	}
	cal := businessday.Default()
	if file := c.String("holidays"); file != "" {
		if err := cal.LoadFile(file); nil != err {
			return err
		}
	}

	out := struct {
		At          instantInfo  `json:"at"`
		Description string       `json:"description"`
		Result      *instantInfo `json:"result,omitempty"`
	}{
		At:          r.info(dt),
		Description: cal.Describe(dt),
	}
	text := dt.Format(r.format, r.noMs) + ": " + out.Description
	if c.IsSet("add") {
		moved := cal.AddBusinessDays(dt, c.Int("add"))
		if moved.IsNull() {
			return ErrOutOfRange
		}
		info := r.info(moved)
		out.Result = &info
		text = info.Text
	}
	return output(m, text, out)
}
