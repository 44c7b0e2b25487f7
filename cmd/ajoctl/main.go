package main

import (
	"os"

	"github.com/joho/godotenv"

	"ajosave/internal/commands"
)

func main() {
	_ = godotenv.Load()
	if err := commands.NewRootCommand(commands.DefaultEnv()).Execute(); err != nil {
		os.Exit(1)
	}
}
