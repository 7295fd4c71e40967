package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "", "configuration file (embedded default.yaml when empty)")
	modelPath := flag.String("model", "", "model file, overrides the configuration")
	tick := flag.Duration("tick", 16*time.Millisecond, "engine tick period")
	watch := flag.Bool("watch", false, "re-apply runtime settings when the configuration file changes")
	serve := flag.String("serve", "", "serve the loopback backend (/collisions) and the position source (/positions) on this address instead of running the engine")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{
		configPath: *configPath,
		modelPath:  *modelPath,
		tick:       *tick,
		watch:      *watch,
	}

	var err error
	if *serve != "" {
		err = runServer(ctx, *serve, opts)
	} else {
		err = runEngine(ctx, opts)
	}
	if err != nil {
		log.Fatal(err)
	}
}
