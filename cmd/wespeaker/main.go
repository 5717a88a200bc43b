// Package main provides the wespeaker CLI and web service.
//
// Usage:
//
//	wespeaker [flags] <command> [args]
//
// Commands:
//
//	serve    - Run the speaker embedding web UI on 0.0.0.0:7860
//	extract  - Extract a speaker embedding from an audio file
//	compare  - Compare the speakers of two audio files
//	info     - Show model information
//	config   - Configuration management
//	version  - Print the version
//
// Configuration:
//
//	The CLI stores configuration in ~/.giztoy/wespeaker/
//	Use 'wespeaker config context' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/wespeaker/cmd/wespeaker/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
