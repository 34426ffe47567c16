package main

import (
	"os"

	// Embedded zone database so Asia/Riyadh resolves on minimal images.
	_ "time/tzdata"

	appLog "hijrical/internal/log"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		appLog.Error("hijrical failed", err)
		os.Exit(1)
	}
}
