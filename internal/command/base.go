// Package command implements the tickbt command line.
package command

import (
	"flag"
	"io"
)

// Command is one tickbt subcommand.
type Command interface {
	// Name returns the name the command is invoked by.
	Name() string

	// Description returns a one-line summary.
	Description() string

	// Usage returns the usage line.
	Usage() string

	// SetupFlags registers the command's flags on fs.
	SetupFlags(fs *flag.FlagSet)

	// Execute runs the command with the arguments left after flag parsing.
	Execute(args []string, stdout, stderr io.Writer) error
}

// BaseCommand holds the descriptive fields every command shares.
type BaseCommand struct {
	name        string
	description string
	usage       string
}

// NewBaseCommand returns a BaseCommand.
func NewBaseCommand(name, description, usage string) *BaseCommand {
	return &BaseCommand{
		name:        name,
		description: description,
		usage:       usage,
	}
}

func (c *BaseCommand) Name() string        { return c.name }
func (c *BaseCommand) Description() string { return c.description }
func (c *BaseCommand) Usage() string       { return c.usage }

// SetupFlags registers no flags.
func (c *BaseCommand) SetupFlags(fs *flag.FlagSet) {}
