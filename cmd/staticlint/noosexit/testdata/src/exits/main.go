package main

import (
	"log"
	"os"
	stdos "os"
)

func cleanup() {}

func main() {
	if len(os.Args) > 3 {
		log.Fatal("too many arguments")
	}

	defer cleanup()

	if len(os.Args) > 2 {
		log.Fatalf("unexpected argument %q", os.Args[2]) // want `log.Fatalf in main.main skips the deferred calls registered before it`
	}

	if len(os.Args) > 1 {
		stdos.Exit(2) // want `avoid using os.Exit in main.main`
	}

	go func() {
		log.Fatalln("closures are not checked")
	}()

	os.Exit(0) // want `avoid using os.Exit in main.main`
}

func helper() {
	os.Exit(1)
}
