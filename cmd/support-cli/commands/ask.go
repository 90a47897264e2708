package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lifewood-support-backend/internal/responder"
)

func newAskCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Print the reply for a single question",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.responder()
			if err != nil {
				return err
			}
			reply := r.Respond(strings.Join(args, " "))
			opts.logger().Debug("reply", zap.String("topic", reply.Topic))
			if asJSON {
				b, err := json.MarshalIndent(reply, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling JSON: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", b)
				return nil
			}
			printReply(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the reply as JSON")
	return cmd
}

// printReply renders a reply with numbered quick replies.
func printReply(w io.Writer, reply responder.Reply) {
	fmt.Fprintf(w, "bot: %s\n", reply.Text)
	if reply.CTA != nil {
		fmt.Fprintf(w, "  -> %s (%s)\n", reply.CTA.Label, reply.CTA.Path)
	}
	for i, q := range reply.QuickReplies {
		fmt.Fprintf(w, "  [%d] %s\n", i+1, q)
	}
}
