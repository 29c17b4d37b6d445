// Command shortener runs the link shortener HTTP service.
package main

import (
	"log"

	"github.com/patric-chuzhbe/linkclicks/internal/app"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}

	err = theApp.Run()
	theApp.Close()
	if err != nil {
		log.Fatalf("server stopped with error: %v", err)
	}
}
