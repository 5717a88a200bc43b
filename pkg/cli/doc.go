// Package cli provides the configuration and terminal plumbing shared by
// the wespeaker command.
//
// This package includes:
//   - Named contexts with free-form settings, stored kubectl style in
//     ~/.giztoy/<app>/config.yaml
//   - Output formatting (YAML, JSON, msgpack, raw)
//   - Request file loading (YAML/JSON)
//   - A lipgloss card renderer for human-readable summaries
//
// Example usage:
//
//	cfg, err := cli.LoadConfig("wespeaker")
//	ctx, err := cfg.ResolveContext("")
//	listen := ctx.GetExtra("listen")
//
//	cli.Output(result, cli.OutputOptions{Format: cli.FormatJSON})
package cli
