package main

import (
	"os"

	"github.com/helios-portal/helios-dirsync/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
