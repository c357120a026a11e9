package main

import (
	"fmt"
	"strings"

	"github.com/danmuck/bits/internal/bits"
	"github.com/danmuck/bits/internal/bits/export"
	"github.com/spf13/cobra"
)

func (a *app) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [hex]",
		Short: "Print the version total and the evaluated value",
		Long: `The run command decodes a transcript and prints both derived values.

Example:
  bitsctl run 9C0141080250320F1802104A08
  bitsctl run -f input.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.withPacket(func(cmd *cobra.Command, p *bits.Packet) error {
			s, err := bits.Summarize(p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version_total %d\nvalue %d\n", s.VersionTotal, s.Value)
			return nil
		}),
	}
}

func (a *app) newSumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sum [hex]",
		Short: "Print the sum of every packet version",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.withPacket(func(cmd *cobra.Command, p *bits.Packet) error {
			fmt.Fprintln(cmd.OutOrStdout(), bits.VersionTotal(p))
			return nil
		}),
	}
}

func (a *app) newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval [hex]",
		Short: "Print the value of the encoded expression",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.withPacket(func(cmd *cobra.Command, p *bits.Packet) error {
			v, err := bits.Evaluate(p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		}),
	}
}

func (a *app) newExprCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expr [hex]",
		Short: "Print the packet tree as an infix expression",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.withPacket(func(cmd *cobra.Command, p *bits.Packet) error {
			fmt.Fprintln(cmd.OutOrStdout(), bits.Format(p))
			return nil
		}),
	}
}

func (a *app) newDumpCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "dump [hex]",
		Short: "Export the decoded packet tree",
		Long: `The dump command exports the decoded tree with both derived values.

Example:
  bitsctl dump EE00D40C823060
  bitsctl dump --format yaml -f input.txt
  bitsctl dump --format cbor EE00D40C823060 > tree.cbor`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.withPacket(func(cmd *cobra.Command, p *bits.Packet) error {
			doc, err := export.NewDocument(p)
			if err != nil {
				return err
			}
			return export.Write(cmd.OutOrStdout(), format, doc)
		}),
	}
	cmd.Flags().StringVar(&format, "format", "json", "Output format: "+strings.Join(export.Names(), "|"))
	return cmd
}
