package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lifewood-support-backend/internal/responder"
)

type options struct {
	rulesFile string
	verbose   bool
}

// NewRootCmd builds the support-cli command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "support-cli",
		Short: "Query the Lifewood support assistant offline",
		Long: `support-cli runs the rule-based support responder without the HTTP server.

Examples:
  support-cli ask "do you have any job openings"
  support-cli --rules rules.yaml rules
  support-cli chat`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.rulesFile, "rules", "", "YAML rule table to use instead of the built-in rules")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log matched topics to stderr")

	cmd.AddCommand(newAskCmd(opts), newRulesCmd(opts), newChatCmd(opts), NewVersionCmd())
	return cmd
}

func (o *options) responder() (*responder.Responder, error) {
	if o.rulesFile == "" {
		return responder.Default(), nil
	}
	rules, err := responder.LoadRules(o.rulesFile)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	return responder.New(rules), nil
}

func (o *options) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
