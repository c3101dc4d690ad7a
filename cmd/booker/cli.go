package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/example/resource-booker/internal/application"
	"github.com/example/resource-booker/internal/calendar"
	"github.com/example/resource-booker/internal/config"
	"github.com/example/resource-booker/internal/metrics"
	"github.com/example/resource-booker/internal/persistence"
)

const usage = `usage: booker <group> <action> [flags]

  user      create | update | rename | delete | list | show
  resource  create | update | rename | delete | list | show | dates
  booking   create | edit | delete | list | show
  check     [-repair]

Run "booker <group> <action> -h" for the flags of one action.`

var errUsage = errors.New("usage error")

type cli struct {
	svc         services
	maxAttempts int
	prompter    *prompter
	stdout      io.Writer
	stderr      io.Writer
	logger      *slog.Logger
}

func newCLI(store *persistence.Store, cfg config.Config, logger *slog.Logger, registry *metrics.Registry, stdin io.Reader, stdout, stderr io.Writer) *cli {
	return &cli{
		svc:         newServices(store, cfg, logger, registry),
		maxAttempts: cfg.MaxAuthAttempts,
		prompter:    newPrompter(stdin, stderr),
		stdout:      stdout,
		stderr:      stderr,
		logger:      logger,
	}
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(c.stderr, usage)
		return errUsage
	}
	group, rest := args[0], args[1:]
	if group == "check" {
		return c.check(ctx, rest)
	}
	if len(rest) == 0 {
		fmt.Fprintln(c.stderr, usage)
		return errUsage
	}
	action, rest := rest[0], rest[1:]

	var handlers map[string]func(context.Context, []string) error
	switch group {
	case "user":
		handlers = map[string]func(context.Context, []string) error{
			"create": c.userCreate,
			"update": c.userUpdate,
			"rename": c.userRename,
			"delete": c.userDelete,
			"list":   c.userList,
			"show":   c.userShow,
		}
	case "resource":
		handlers = map[string]func(context.Context, []string) error{
			"create": c.resourceCreate,
			"update": c.resourceUpdate,
			"rename": c.resourceRename,
			"delete": c.resourceDelete,
			"list":   c.resourceList,
			"show":   c.resourceShow,
			"dates":  c.resourceDates,
		}
	case "booking":
		handlers = map[string]func(context.Context, []string) error{
			"create": c.bookingCreate,
			"edit":   c.bookingEdit,
			"delete": c.bookingDelete,
			"list":   c.bookingList,
			"show":   c.bookingShow,
		}
	}
	handler, ok := handlers[action]
	if !ok {
		fmt.Fprintf(c.stderr, "unknown command %q\n%s\n", strings.TrimSpace(group+" "+action), usage)
		return errUsage
	}
	return handler(ctx, rest)
}

// command is one parsed action with its common flags.
type command struct {
	fs     *flag.FlagSet
	secret *string
	json   *bool
}

func (c *cli) newCommand(name string, withSecret, withJSON bool) *command {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	cmd := &command{fs: fs}
	if withSecret {
		cmd.secret = fs.String("secret", "", "secret of the user performing the action (prompted when omitted)")
	}
	if withJSON {
		cmd.json = fs.Bool("json", false, "render output as JSON")
	}
	return cmd
}

func (cmd *command) parse(args []string) error {
	if err := cmd.fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errUsage
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if cmd.fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, cmd.fs.Args())
	}
	return nil
}

// isSet reports whether the named flag appeared on the command line.
func (cmd *command) isSet(name string) bool {
	set := false
	cmd.fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// optional returns a pointer to value when the flag was given, else nil.
func (cmd *command) optional(name, value string) *string {
	if !cmd.isSet(name) {
		return nil
	}
	return &value
}

func (cmd *command) asJSON() bool {
	return cmd.json != nil && *cmd.json
}

func (c *cli) secretPrompt(cmd *command) application.SecretPrompt {
	if cmd.secret != nil && cmd.isSet("secret") {
		return application.StaticSecret(*cmd.secret)
	}
	return c.prompter.prompt(c.maxAttempts)
}

func parseDateFlag(name, value string) (calendar.Date, error) {
	if value == "" {
		return calendar.Date{}, nil
	}
	d, err := calendar.ParseDate(value)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("%w: -%s: %v", errUsage, name, err)
	}
	return d, nil
}

func optionalDate(cmd *command, name, value string) (*calendar.Date, error) {
	if !cmd.isSet(name) {
		return nil, nil
	}
	d, err := calendar.ParseDate(value)
	if err != nil {
		return nil, fmt.Errorf("%w: -%s: %v", errUsage, name, err)
	}
	return &d, nil
}
