package main

import (
	"fmt"
	"log"
	"os"

	"github.com/muratoffalex/discordctl/internal/app"
)

var (
	version   string
	buildTime string
)

func main() {
	fmt.Fprintf(os.Stderr, "Starting discordctl version: %s (built at: %s)\n", version, buildTime)
	application, err := app.New()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	err = application.Start()
	application.Shutdown()
	if err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}
