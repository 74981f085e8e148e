package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"

	"chronoutil/pkg/conversion"
	"chronoutil/pkg/iocopy"
)

func runBase64(c *cli.Context) error {
	m := config(c)
	if err := requireArgs(c, 1); nil != err {
		return err
	}
	text := strings.Join(c.Args(), " ")
	if c.Bool("decode") {
		data, err := conversion.DecodeBase64(text)
		if nil != err {
			return err
		}
		return output(m, string(data), map[string]string{"decoded": string(data)})
	}
	encoded := conversion.EncodeBase64([]byte(text))
	return output(m, encoded, map[string]string{"encoded": encoded})
}

func runSize(c *cli.Context) error {
	m := config(c)
	if c.IsSet("bitrate") {
		s := conversion.BitrateToString(c.Float64("bitrate"), c.Bool("use-bytes"))
		return output(m, s, map[string]string{"bitrate": s})
	}
	if err := requireArgs(c, 1); nil != err {
		return err
	}
	n, err := conversion.StringToNumber[uint64](c.Args().First(), 10)
	if nil != err {
		return err
	}
	s := conversion.DataSizeToString(n, c.Bool("bytes"))
	return output(m, s, map[string]string{"size": s})
}

func runCopy(c *cli.Context) error {
	m := config(c)
	from, to := c.String("from"), c.String("to")
	if from == "" || to == "" {
		return fmt.Errorf("%w: --from and --to", ErrRequiredFlag)
	}

	src, err := os.Open(from)
	if nil != err {
		return err
	}
	defer src.Close()

	count := c.Int64("count")
	if count < 0 {
		info, err := src.Stat()
		if nil != err {
			return err
		}
		count = info.Size()
	}

	dst, err := os.Create(to)
	if nil != err {
		return err
	}

	var progress func(float64)
	if c.Bool("progress") {
		progress = func(f float64) {
			fmt.Fprintf(m.e, "\rcopied %5.1f%%", f*100)
			if f >= 1 {
				fmt.Fprintln(m.e)
			}
		}
	}

	h := iocopy.NewHelper(c.Int("buffer"))
	if err := h.CallbackCopy(dst, src, count, nil, progress); nil != err {
		dst.Close()
		return err
	}
	if err := dst.Close(); nil != err {
		return err
	}

	s := conversion.DataSizeToString(uint64(count), true)
	return output(m, "copied "+s, map[string]any{"from": from, "to": to, "bytes": count})
}
