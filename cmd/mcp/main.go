package main

import (
	"fmt"
	"os"

	"github.com/TheFrenchOak/total-reclaw/internal/mcp"
)

func main() {
	serverURL := os.Getenv("RECLAW_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8741"
	}

	server := mcp.NewServer(serverURL, os.Getenv("RECLAW_API_KEY"))
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp server error: %s\n", err)
		os.Exit(1)
	}
}
