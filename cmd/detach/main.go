package main

import (
	"errors"
	"os"
	"runtime"

	"github.com/alebeck/detach/internal/log"
	"github.com/alebeck/detach/internal/stage"
	"golang.org/x/term"
)

var isTerm = term.IsTerminal(int(os.Stderr.Fd()))

func main() {
	initLogging()

	// Re-executed as the new process?
	if len(os.Args) >= 2 && os.Args[1] == stage.Flag {
		os.Exit(stage.Run(os.Args[2:]))
	}

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		log.Errorf("%v", err)
		var ue *usageError
		if errors.As(err, &ue) {
			log.Printf("%s", root.UsageString())
		}
		os.Exit(1)
	}
}

func initLogging() {
	// Diagnostics go to stderr, stdout carries nothing but the pid report.
	// We don't use colors under Windows for now.
	useColors := isTerm && runtime.GOOS != "windows"
	log.Init(os.Stderr, isTerm, useColors)
}
