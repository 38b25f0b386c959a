package main

import (
	"os"

	"github.com/intraylabs/intray/intrayservice"
)

func main() {
	if err := intrayservice.Run(); err != nil {
		os.Exit(1)
	}
}
