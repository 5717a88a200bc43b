package commands

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/wespeaker/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts allow you to keep several service setups, similar to kubectl's
context management. Configuration is stored in ~/.giztoy/wespeaker/config.yaml`,
}

var configContextCmd = &cobra.Command{
	Use:     "context",
	Aliases: []string{"ctx"},
	Short:   "Manage contexts",
}

var configContextListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all contexts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		names := cfg.ListContexts()
		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, "No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tLISTEN\tSCORER\tSTORAGE")
		for _, name := range names {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", current, name,
				orDefault(ctx.GetExtra(keyListen)),
				orDefault(ctx.GetExtra(keyScorer)),
				orDefault(ctx.GetExtra(keyStorage)))
		}
		return w.Flush()
	},
}

var configContextUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", args[0])
		return nil
	},
}

var configContextSetCmd = &cobra.Command{
	Use:   "set <name> <key>=<value>...",
	Short: "Create a context or change its settings",
	Long: `Create a context or change its settings. An empty value removes the key.

Keys: ` + strings.Join(contextKeys, ", ") + `

Example:
  wespeaker config context set local scorer=cosine decode=true
  wespeaker config context set prod storage=s3 s3_bucket=voices s3_region=ap-southeast-1
  wespeaker config context set prod kv_dir=`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		extra, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		name := args[0]
		if err := getConfig().SetContext(name, extra); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q saved", name)
		return nil
	},
}

var configContextDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Delete a context",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", args[0])
		return nil
	},
}

var configContextShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a context and its resolved settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		name := contextName
		if len(args) == 1 {
			name = args[0]
		}
		ctx, err := cfg.ResolveContext(name)
		if err != nil {
			return err
		}
		paths, err := cli.NewPaths(appName)
		if err != nil {
			return err
		}
		resolved, err := LoadServeConfig(ctx, paths)
		if err != nil {
			return err
		}

		settings := make(map[string]string, len(ctx.Extra))
		for k, v := range ctx.Extra {
			if secretKeys[k] {
				v = cli.MaskSecret(v)
			}
			settings[k] = v
		}
		view := contextView{
			Name:     ctx.Name,
			Current:  ctx.Name == cfg.CurrentContext,
			File:     cfg.Path(),
			Settings: settings,
			Listen:   resolved.Listen,
			Scorer:   resolved.Scorer,
			Decode:   resolved.Decode,
			Storage:  resolved.Storage,
			KV:       orValue(resolved.KVDir, "memory"),
			Upload:   cli.FormatBytes(int64(resolved.MaxUploadMB) << 20),
			Keep:     resolved.Retention.String(),
		}
		return outputResult(cmd.OutOrStdout(), view, view.card().Render(0))
	},
}

// contextView is what 'config context show' prints.
type contextView struct {
	Name     string            `yaml:"name" json:"name"`
	Current  bool              `yaml:"current" json:"current"`
	File     string            `yaml:"file" json:"file"`
	Settings map[string]string `yaml:"settings" json:"settings"`
	Listen   string            `yaml:"listen" json:"listen"`
	Scorer   string            `yaml:"scorer" json:"scorer"`
	Decode   bool              `yaml:"decode" json:"decode"`
	Storage  string            `yaml:"storage" json:"storage"`
	KV       string            `yaml:"kv" json:"kv"`
	Upload   string            `yaml:"max_upload" json:"max_upload"`
	Keep     string            `yaml:"retention" json:"retention"`
}

func (v contextView) card() cli.Card {
	keys := make([]string, 0, len(v.Settings))
	for k := range v.Settings {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	set := make([]cli.Field, 0, len(keys))
	for _, k := range keys {
		set = append(set, cli.Field{Key: k, Value: v.Settings[k]})
	}
	status := ""
	if v.Current {
		status = "current"
	}
	return cli.Card{
		Styles: cli.NewStyles(cli.DefaultTheme),
		Title:  v.Name,
		Status: status,
		Sections: []cli.Section{
			{Label: "Settings", Fields: set},
			{Label: "Resolved", Fields: []cli.Field{
				{Key: "listen", Value: v.Listen},
				{Key: "scorer", Value: v.Scorer},
				{Key: "decode", Value: fmt.Sprint(v.Decode)},
				{Key: "storage", Value: v.Storage},
				{Key: "index", Value: v.KV},
				{Key: "max upload", Value: v.Upload},
				{Key: "retention", Value: v.Keep},
			}},
		},
		Footer: v.File,
	}
}

// parseAssignments parses key=value arguments. Keys must be known.
func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", a)
		}
		k = strings.TrimSpace(k)
		if !slices.Contains(contextKeys, k) {
			return nil, fmt.Errorf("unknown key %q (known: %s)", k, strings.Join(contextKeys, ", "))
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func orDefault(s string) string {
	return orValue(s, "(default)")
}

func orValue(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func init() {
	configContextCmd.AddCommand(configContextListCmd)
	configContextCmd.AddCommand(configContextUseCmd)
	configContextCmd.AddCommand(configContextSetCmd)
	configContextCmd.AddCommand(configContextDeleteCmd)
	configContextCmd.AddCommand(configContextShowCmd)
	configCmd.AddCommand(configContextCmd)
}
