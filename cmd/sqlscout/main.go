package main

import (
	"github.com/joho/godotenv"

	"github.com/sqlscout/sqlscout/internal/cli"
)

func main() {
	_ = godotenv.Load()
	cli.Execute()
}
