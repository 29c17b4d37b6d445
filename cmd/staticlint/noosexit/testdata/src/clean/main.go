package main

import "log"

func run() error { return nil }

func main() {
	err := run()
	if err != nil {
		log.Fatalf("failed: %v", err)
	}
}
