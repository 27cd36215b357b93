package main

import (
	"os"

	_ "api-boilerplate/internal/apps/all"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
