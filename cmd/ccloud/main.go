package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zpiroux/ccloud-kafka-example/ccloud"
)

func main() {
	settings, err := ccloud.LoadSettings()
	if err != nil {
		fmt.Println(err)
		os.Exit(ccloud.ExitFailure)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := ccloud.NewApp(settings, nil, nil).Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
