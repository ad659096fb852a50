package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/skratchdot/open-golang/open"
)

func configureMetricsCommand(app *kingpin.Application, g *gatewayctl) {
	var addr string
	cmd := app.Command("metrics", "Open the gateway's /metrics endpoint in a browser")
	cmd.Arg("addr", "Base URL of a running gateway instance").Default("http://localhost:9090").StringVar(&addr)
	cmd.Action(func(*kingpin.ParseContext) error {
		url := addr + "/metrics"
		if !isInteractive() {
			fmt.Println(url)
			return nil
		}
		if err := open.Run(url); err != nil {
			fmt.Fprintf(os.Stderr, "could not open browser, visit %s manually: %v\n", url, err)
		}
		return nil
	})
}
