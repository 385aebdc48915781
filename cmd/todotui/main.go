package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"todotui/cli"
)

// envLogFile names an optional file sink for runtime logs. Console
// logging stays off so log lines never bleed into TUI frames.
const envLogFile = "TODOTUI_LOG"

func main() {
	closeLog := configureLogging()

	cmd := cli.NewRootCmd()
	err := cmd.Execute()
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

func configureLogging() func() {
	log.SetOutput(io.Discard)

	path := os.Getenv(envLogFile)
	if path == "" {
		return func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "todotui: open log file %s: %v\n", path, err)
		return func() {}
	}

	// Keep file output parseable and unstyled.
	log.SetOutput(f)
	log.SetFormatter(log.LogfmtFormatter)
	log.SetLevel(log.DebugLevel)
	log.SetPrefix("todotui")
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.RFC3339)
	return func() { _ = f.Close() }
}
