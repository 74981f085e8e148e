package main

import (
	"encoding/json"
	"fmt"
	"io"
)

func printJson(handle io.Writer, message interface{}) error {

	b, err := json.MarshalIndent(message, "", "  ")
	if nil != err {
		return err
	}

	fmt.Fprintf(handle, "%s\n", b)
	return nil
}

// output prints message as JSON when requested, otherwise text.
func output(m *metadata, text string, message interface{}) error {
	if m.json {
		return printJson(m.w, message)
	}
	_, err := fmt.Fprintln(m.w, text)
	return err
}
