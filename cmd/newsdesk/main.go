package main

import (
	"newsdesk/cmd/cmd"
	"newsdesk/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	cmd.Execute()
}
