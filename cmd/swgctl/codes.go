package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/taoyao-code/soundweb-gateway/internal/codetable"
	"github.com/taoyao-code/soundweb-gateway/internal/protocol/soundweb"
)

func codesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "Work with vendor channel code exports",
	}
	cmd.AddCommand(codesGroupsCmd(), codesConvertCmd(), codesResolveCmd(), codesFindCmd())
	return cmd
}

func codesGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List control groups and their ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, g := range soundweb.Groups() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", byte(g), g)
			}
			return nil
		},
	}
}

func codesConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert EXPORT OUT.yaml",
		Short: "Parse a vendor text export and write a YAML snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, warnings, err := codetable.Load(args[0])
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := tbl.WriteYAML(f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries written to %s\n", tbl.Len(), args[1])
			return nil
		},
	}
}

func codesResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve FILE GROUP CODE",
		Short: "Print the control behind a channel code",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, g, err := loadForGroup(args[0], args[1])
			if err != nil {
				return err
			}
			code, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("code: %w", err)
			}
			d, err := tbl.Resolve(g, code)
			if err != nil {
				return err
			}
			return printJSON(cmd, d)
		},
	}
}

func codesFindCmd() *cobra.Command {
	var want codetable.Descriptor
	cmd := &cobra.Command{
		Use:   "find FILE GROUP",
		Short: "Find the channel code of a control",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, g, err := loadForGroup(args[0], args[1])
			if err != nil {
				return err
			}
			code, err := tbl.Find(g, want)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
	cmd.Flags().StringVar(&want.Device, "device", "", "device name")
	cmd.Flags().StringVar(&want.Control, "control", "", "control name")
	cmd.Flags().StringVar(&want.Type, "type", "", "control type")
	cmd.Flags().StringVar(&want.Direction, "direction", "", "spinner direction")
	cmd.Flags().StringVar(&want.Name, "name", "", "preset name")
	return cmd
}

func loadForGroup(path, group string) (*codetable.Table, soundweb.Group, error) {
	g, ok := soundweb.ParseGroup(group)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", soundweb.ErrInvalidGroup, group)
	}
	tbl, _, err := codetable.Load(path)
	if err != nil {
		return nil, 0, err
	}
	return tbl, g, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
