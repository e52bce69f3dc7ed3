package main

import (
	"sol-price-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
