package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atinyakov/BagWardrobe/internal/client/view"
	"github.com/atinyakov/BagWardrobe/internal/collection"
)

func (c *cli) keyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "key [api-key]",
		Short: "Save the provider API key (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.setKey(cmd.Context(), args)
		},
	}
}

func (c *cli) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <image>...",
		Short: "Add bag photos to the collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.add(cmd.Context(), args)
		},
	}
}

func (c *cli) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.list(cmd.Context(), args)
		},
	}
}

func (c *cli) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a bag from the collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.remove(cmd.Context(), args)
		},
	}
}

func (c *cli) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <field> <value>",
		Short: "Set brand, model, purchasePrice, estimatedValue or condition of a bag",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.update(cmd.Context(), args)
		},
	}
}

func (c *cli) totalsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "totals",
		Short: "Show purchase, estimated value and appreciation totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.totals(cmd.Context(), args)
		},
	}
}

func (c *cli) analyzeCommand() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Ask for a critique of the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.analyze(cmd.Context(), prompt)
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "", "replace the default analysis instructions")
	return cmd
}

func (c *cli) setKey(ctx context.Context, args []string) error {
	var key string
	if len(args) > 0 {
		key = args[0]
	} else {
		fmt.Fprint(c.out, "API key: ")
		scanner := bufio.NewScanner(c.in)
		if scanner.Scan() {
			key = scanner.Text()
		}
	}
	if err := c.store.SetCredential(ctx, key); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "API key saved")
	return nil
}

func (c *cli) add(ctx context.Context, paths []string) error {
	added, err := c.app.Upload(ctx, paths)
	for _, r := range added {
		fmt.Fprintf(c.out, "Added %s (%s)\n", r.Name, r.ID)
	}
	return err
}

func (c *cli) list(context.Context, []string) error {
	return view.Collection(c.out, c.store.Records())
}

func (c *cli) remove(ctx context.Context, args []string) error {
	removed, err := c.store.Remove(ctx, args[0])
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintln(c.out, "Bag not found")
		return nil
	}
	fmt.Fprintln(c.out, "Bag removed")
	return nil
}

func (c *cli) update(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: update <id> <field> <value>")
	}
	value := strings.Join(args[2:], " ")
	rec, err := c.store.Update(ctx, args[0], args[1], value)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Updated %s\n", rec.Name)
	return nil
}

func (c *cli) totals(context.Context, []string) error {
	return view.Totals(c.out, collection.Calculate(c.store.Records()))
}

func (c *cli) analyze(ctx context.Context, prompt string) error {
	fmt.Fprintln(c.out, "Analyzing your collection...")
	result, err := c.app.Analyze(ctx, prompt)
	if err != nil {
		return err
	}
	return view.Analysis(c.out, result)
}
