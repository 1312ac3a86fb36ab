package main

import (
	"flag"
	"fmt"
	"os"

	"pgpchat-client/ui"
)

func main() {
	serverURL := flag.String("server", "ws://localhost:8765/ws", "pgpchat server WebSocket URL")
	flag.Parse()

	app := ui.NewApp(*serverURL)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
