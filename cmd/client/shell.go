package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atinyakov/BagWardrobe/internal/client/view"
)

const shellHelp = `Available commands:
  key [api-key]                  save the provider API key
  add <image>...                 add bag photos
  list                           show the collection
  remove <id>                    remove a bag
  update <id> <field> <value>    set brand, model, purchasePrice, estimatedValue or condition
  totals                         show value totals
  analyze [instructions]         critique the collection
  analysis                       show the last critique
  help, exit`

func (c *cli) shellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.repl(cmd.Context())
			return nil
		},
	}
}

// repl runs the interactive loop until exit, end of input or ctx is done.
func (c *cli) repl(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)

	for ctx.Err() == nil {
		fmt.Fprint(c.out, "bagwardrobe> ")
		if !scanner.Scan() {
			break
		}
		args := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(args) == 0 {
			continue
		}

		var err error
		switch verb, rest := args[0], args[1:]; verb {
		case "help":
			fmt.Fprintln(c.out, shellHelp)
		case "key":
			if len(rest) == 0 {
				fmt.Fprintln(c.out, "Usage: key <api-key>")
				continue
			}
			err = c.setKey(ctx, rest)
		case "add":
			if len(rest) == 0 {
				fmt.Fprintln(c.out, "Usage: add <image>...")
				continue
			}
			err = c.add(ctx, rest)
		case "list":
			err = c.list(ctx, rest)
		case "remove":
			if len(rest) != 1 {
				fmt.Fprintln(c.out, "Usage: remove <id>")
				continue
			}
			err = c.remove(ctx, rest)
		case "update":
			if len(rest) < 2 {
				fmt.Fprintln(c.out, "Usage: update <id> <field> <value>")
				continue
			}
			err = c.update(ctx, rest)
		case "totals":
			err = c.totals(ctx, rest)
		case "analyze":
			err = c.analyze(ctx, strings.Join(rest, " "))
		case "analysis":
			err = view.Analysis(c.out, c.store.Analysis())
		case "exit", "quit":
			fmt.Fprintln(c.out, "Bye")
			return
		default:
			fmt.Fprintln(c.out, "Unknown command. Type 'help' for a list of commands.")
		}
		if err != nil {
			fmt.Fprintln(c.out, "Error:", err)
		}
	}
}
