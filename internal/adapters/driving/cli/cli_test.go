package cli

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, in io.Reader, args ...string) (string, error) {
	t.Helper()

	authManual, authNoBrowser = false, false
	recordsProvider, recordsKind, recordsSince, recordsLimit, recordsJSON = "", "", "", 50, false

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	if in == nil {
		in = strings.NewReader("")
	}
	rootCmd.SetIn(in)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return out.String(), err
}
