package main

import (
	"fmt"
	"os"

	"github.com/Nebulatools/happy-dreamersV2-sub006/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	application.Log.Info("Server listening", "port", application.Cfg.Port)
	if err := application.Run(); err != nil {
		application.Log.Fatal("Server failed", "error", err)
	}
}
