package mainboilerplate

import (
	"strings"

	"github.com/jessevdk/go-flags"
)

// AddCommandFunc registers a sub-command with its parent Command.
type AddCommandFunc func(*flags.Command) error

// CommandRegistry collects sub-commands, keyed on the dotted path of their
// parent command, so that packages may register commands from init() before
// the parser is built. The empty path is the root command.
type CommandRegistry map[string][]AddCommandFunc

// NewCommandRegistry returns an empty CommandRegistry.
func NewCommandRegistry() CommandRegistry {
	return make(CommandRegistry)
}

// AddCommand registers |command| under the parent at dotted path |parentName|.
// Arguments are as for flags.Command.AddCommand. For example:
//
//	AddCommand("", "db", ...)
//	AddCommand("db", "migrate", ...)
func (cr CommandRegistry) AddCommand(parentName, command, shortDescription, longDescription string, data interface{}) {
	cr[parentName] = append(cr[parentName], func(cmd *flags.Command) error {
		_, err := cmd.AddCommand(command, shortDescription, longDescription, data)
		return err
	})
}

// AddCommands adds commands registered under |rootName| to |rootCmd|. If
// |recursive|, commands registered under each added command are added too.
func (cr CommandRegistry) AddCommands(rootName string, rootCmd *flags.Command, recursive bool) error {
	for _, fn := range cr[rootName] {
		if err := fn(rootCmd); err != nil {
			return err
		}
	}
	if !recursive {
		return nil
	}

	for _, cmd := range rootCmd.Commands() {
		var name = strings.TrimPrefix(rootName+"."+cmd.Name, ".")

		if err := cr.AddCommands(name, cmd, true); err != nil {
			return err
		}
	}
	return nil
}
