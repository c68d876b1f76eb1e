package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"slidesift/internal/services"
)

// usageError marks command-line misuse; it exits with services.ExitUsage and
// prints the command's usage text.
type usageError struct {
	msg   string
	usage string
}

func (e *usageError) Error() string { return e.msg }

func newUsageError(cmd *cobra.Command, msg string) error {
	return &usageError{msg: msg, usage: cmd.UsageString()}
}

// argsBetween accepts between min and max positional arguments.
func argsBetween(min, max int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min || len(args) > max {
			if min == max {
				return newUsageError(cmd, fmt.Sprintf("%s expects %d argument(s), got %d", cmd.Name(), min, len(args)))
			}
			return newUsageError(cmd, fmt.Sprintf("%s expects %d to %d arguments, got %d", cmd.Name(), min, max, len(args)))
		}
		return nil
	}
}

func exactArgs(n int) cobra.PositionalArgs { return argsBetween(n, n) }

func exitCode(err error) int {
	var usage *usageError
	if errors.As(err, &usage) {
		return services.ExitUsage
	}
	return services.ExitCode(err)
}
