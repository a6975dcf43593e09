package main

import (
	"flag"
	"log"

	"github.com/haguru/bookshelf/config"
	"github.com/haguru/bookshelf/internal/app"
)

func main() {
	configPath := flag.String("config", config.CONFIG_PATH, "path to the service configuration file")
	flag.Parse()

	app, err := app.NewApp(*configPath)
	if err != nil {
		log.Fatalf("failed to start bookshelf: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("bookshelf stopped: %v", err)
	}
}
