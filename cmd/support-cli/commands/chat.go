package commands

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lifewood-support-backend/internal/responder"
)

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive support conversation",
		Long: `Start an interactive conversation on stdin.

Type a question, or the number of a quick reply to send its label.
Type /quit or send EOF to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.responder()
			if err != nil {
				return err
			}
			logger := opts.logger()
			out := cmd.OutOrStdout()

			last := responder.Welcome()
			printReply(out, last)
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "/quit" {
					return nil
				}
				// The widget ignores blank submits.
				if line == "" {
					continue
				}
				text := resolveQuickReply(line, last.QuickReplies)
				last = r.Respond(text)
				logger.Debug("reply", zap.String("input", text), zap.String("topic", last.Topic))
				printReply(out, last)
			}
		},
	}
}

// resolveQuickReply maps a 1-based chip number to its label.
func resolveQuickReply(line string, chips []string) string {
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(chips) {
		return line
	}
	return chips[n-1]
}
