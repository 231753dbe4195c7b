package command

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/joeycumines/tickbt/internal/config"
)

// HelpCommand prints the command list, or the help of one command.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

// NewHelpCommand returns the help command for registry.
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(
			"help",
			"Display help information for commands",
			"help [command]",
		),
		registry: registry,
	}
}

// Execute prints help.
func (c *HelpCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, "tickbt - run and inspect real-time behavior trees")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Usage: tickbt <command> [options] [args...]")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Commands:")

		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, name := range c.registry.List() {
			if cmd, err := c.registry.Get(name); err == nil {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
			}
		}
		_ = w.Flush()

		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Use 'tickbt help <command>' for the flags of a command.")
		return nil
	}

	cmd, err := c.registry.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Command: %s\n", cmd.Name())
	_, _ = fmt.Fprintf(stdout, "Description: %s\n", cmd.Description())
	_, _ = fmt.Fprintf(stdout, "Usage: tickbt %s\n", cmd.Usage())

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	buf := &bytes.Buffer{}
	fs.SetOutput(buf)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if buf.Len() > 0 {
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Flags:")
		_, _ = fmt.Fprint(stdout, buf.String())
	}
	return nil
}

// VersionCommand prints the version.
type VersionCommand struct {
	*BaseCommand
	version string
}

// NewVersionCommand returns the version command.
func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand(
			"version",
			"Display version information",
			"version",
		),
		version: version,
	}
}

// Execute prints the version.
func (c *VersionCommand) Execute(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	_, _ = fmt.Fprintf(stdout, "tickbt version %s\n", c.version)
	return nil
}

// ConfigCommand reads, checks and writes configuration options.
type ConfigCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string
	section    string
}

// NewConfigCommand returns the config command. Values set through it are
// written to configPath; an empty path resolves the default location.
func NewConfigCommand(cfg *config.Config, configPath string) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Manage configuration settings",
			"config [-section name] [show|schema|validate|<key> [value]]",
		),
		config:     cfg,
		configPath: configPath,
	}
}

// SetupFlags registers the config flags.
func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.section, "section", "", "Section of the key to read")
}

// Execute runs a config subcommand.
func (c *ConfigCommand) Execute(args []string, stdout, stderr io.Writer) error {
	schema := config.DefaultSchema()

	if len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, "Configuration management:")
		_, _ = fmt.Fprintln(stdout, "  config show           - Show every effective value")
		_, _ = fmt.Fprintln(stdout, "  config schema         - Show the option reference")
		_, _ = fmt.Fprintln(stdout, "  config validate       - Check the configuration file")
		_, _ = fmt.Fprintln(stdout, "  config <key>          - Show one effective value")
		_, _ = fmt.Fprintln(stdout, "  config <key> <value>  - Set a global value")
		return nil
	}

	switch args[0] {
	case "show":
		c.executeShow(stdout, schema)
		return nil
	case "schema":
		_, _ = fmt.Fprint(stdout, schema.FormatHelp())
		return nil
	case "validate":
		return c.executeValidate(stdout, schema)
	}

	switch len(args) {
	case 1:
		key := args[0]
		if schema.Lookup(c.section, key) == nil && schema.Lookup("", key) == nil {
			_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found\n", key)
			return nil
		}
		_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, schema.ResolveSection(c.config, c.section, key))
		return nil

	case 2:
		if c.section != "" {
			return errors.New("only global options can be set")
		}
		key, value := args[0], args[1]
		if issues := config.ValidateConfig(&config.Config{Global: map[string]string{key: value}}, schema); len(issues) > 0 {
			return fmt.Errorf("invalid option: %s", issues[0])
		}
		c.config.SetGlobalOption(key, value)

		path := c.configPath
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return fmt.Errorf("failed to get config path: %w", err)
			}
		}
		if err := config.SetKeyInFile(path, key, value); err != nil {
			return fmt.Errorf("failed to persist config: %w", err)
		}
		_, _ = fmt.Fprintf(stdout, "Set configuration: %s = %s\n", key, value)
		return nil
	}

	_, _ = fmt.Fprintln(stderr, "Invalid number of arguments")
	return fmt.Errorf("invalid arguments")
}

func (c *ConfigCommand) executeShow(stdout io.Writer, schema *config.ConfigSchema) {
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	for _, o := range schema.GlobalOptions() {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", o.Key, schema.Resolve(c.config, o.Key))
	}
	for _, sec := range schema.Sections() {
		_, _ = fmt.Fprintf(w, "\t\n[%s]\t\n", sec)
		for _, o := range schema.SectionOptions(sec) {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", o.Key, schema.ResolveSection(c.config, sec, o.Key))
		}
	}
	_ = w.Flush()
}

func (c *ConfigCommand) executeValidate(stdout io.Writer, schema *config.ConfigSchema) error {
	issues := config.ValidateConfig(c.config, schema)
	if _, err := schema.Settings(c.config); err != nil && len(issues) == 0 {
		// malformed environment overrides
		for _, e := range unwrapJoined(err) {
			issues = append(issues, e.Error())
		}
	}
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(stdout, "Configuration is valid.")
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
	}
	return fmt.Errorf("invalid configuration")
}

func unwrapJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
