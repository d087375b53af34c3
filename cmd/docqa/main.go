package main

import (
	"fmt"
	"os"

	"docqa-ai/cmd/docqa/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
