package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRulesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List topics in evaluation order",
		Long:  `List topic rules in the order they are tested. The first matching rule wins.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.responder()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tTOPIC\tCTA\tPATTERNS")
			for i, rule := range r.Rules() {
				patterns := make([]string, 0, len(rule.Patterns))
				for _, p := range rule.Patterns {
					patterns = append(patterns, strings.TrimPrefix(p.String(), "(?i)"))
				}
				cta := "-"
				if rule.Reply.CTA != nil {
					cta = rule.Reply.CTA.Path
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, rule.Topic, cta, strings.Join(patterns, ", "))
			}
			return w.Flush()
		},
	}
}
