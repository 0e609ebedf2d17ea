package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/abroadportal/internal/client/cli"
	"github.com/dmitrijs2005/abroadportal/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
