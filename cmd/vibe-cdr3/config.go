package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-cdr3/internal/blast"
	"github.com/inodb/vibe-cdr3/internal/cdr3"
	"github.com/inodb/vibe-cdr3/internal/germline"
)

// settingKey is a configuration key read by finalize or summary. parse
// validates a value given to config set and returns what is stored.
type settingKey struct {
	name  string
	parse func(string) (any, error)
}

var settingKeys = []settingKey{
	{"locus", parseLocusSetting},
	{"germline.dir", parseString},
	{"vlib", parseString},
	{"jlib", parseString},
	{"junction.j_motif", parseMotifSetting},
	{"blast.outfmt", parseFormatSetting},
	{"project.name", parseString},
	{"workers", parseWorkersSetting},
	{"db", parseString},
	{"verbose", parseBoolSetting},
}

func lookupSetting(name string) (settingKey, bool) {
	for _, k := range settingKeys {
		if k.name == name {
			return k, true
		}
	}
	return settingKey{}, false
}

func settingNames() []string {
	names := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		names[i] = k.name
	}
	return names
}

func parseString(v string) (any, error) { return v, nil }

func parseLocusSetting(v string) (any, error) {
	l, err := germline.ParseLocus(v)
	if err != nil {
		return nil, err
	}
	return l.String(), nil
}

func parseMotifSetting(v string) (any, error) {
	if _, err := cdr3.JMotif(germline.Custom, v); err != nil {
		return nil, err
	}
	return v, nil
}

func parseFormatSetting(v string) (any, error) {
	if _, err := blast.ParseFormat(v); err != nil {
		return nil, fmt.Errorf("parsing BLAST format: %w", err)
	}
	return v, nil
}

func parseWorkersSetting(v string) (any, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("workers must be a non-negative integer, got %q", v)
	}
	return n, nil
}

func parseBoolSetting(v string) (any, error) {
	switch strings.ToLower(v) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return nil, fmt.Errorf("invalid boolean %q", v)
}

func newConfigCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-cdr3 configuration",
		Long: `Show, get, or set configuration values. Config is stored in ~/` + configName + `.

Without a subcommand, lists every key read by finalize and summary with its
current value and where it came from (env, file or default). Environment
variables use the ` + envPrefix + `_ prefix, e.g. ` + envPrefix + `_GERMLINE_DIR.`,
		Example: `  vibe-cdr3 config                                  # list known keys
  vibe-cdr3 config --yaml                           # dump all settings as YAML
  vibe-cdr3 config set germline.dir /data/germline  # set the library directory
  vibe-cdr3 config set workers 8                    # classify with 8 workers
  vibe-cdr3 config get locus                        # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asYAML {
				return runConfigDump(cmd)
			}
			return runConfigShow(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Dump all settings as YAML")

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: " + strings.Join(settingNames(), ", ") + ".",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, args[0])
		},
	}
}

// settingSource reports where the effective value of key comes from.
func settingSource(key string) string {
	if _, ok := os.LookupEnv(envPrefix + "_" + strings.ToUpper(envKeyReplacer.Replace(key))); ok {
		return "env"
	}
	if viper.InConfig(key) {
		return "file"
	}
	return "default"
}

func runConfigShow(w io.Writer) error {
	if cfg := viper.ConfigFileUsed(); cfg != "" {
		fmt.Fprintf(w, "# Config file: %s\n", cfg)
	}
	for _, k := range settingKeys {
		val := viper.Get(k.name)
		if val == nil || val == "" {
			val = "(none)"
		}
		fmt.Fprintf(w, "%-18s %-28v %s\n", k.name, val, settingSource(k.name))
	}
	return nil
}

func runConfigDump(cmd *cobra.Command) error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if cfg := viper.ConfigFileUsed(); cfg != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "# Config file: %s\n", cfg)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func runConfigSet(cmd *cobra.Command, key, value string) error {
	k, ok := lookupSetting(key)
	if !ok {
		names := settingNames()
		sort.Strings(names)
		return fmt.Errorf("unknown key %q (known: %s)", key, strings.Join(names, ", "))
	}
	v, err := k.parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configName)
	}

	// Only keys set explicitly go to the file, so defaults and env values
	// are not frozen into it.
	file := viper.New()
	file.SetConfigFile(cfgFile)
	if _, err := os.Stat(cfgFile); err == nil {
		if err := file.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
	}
	file.Set(key, v)
	if err := file.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	viper.Set(key, v)

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v in %s\n", key, v, cfgFile)
	return nil
}

func runConfigGet(cmd *cobra.Command, key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}
