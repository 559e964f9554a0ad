// Package cmd defines and implements the CLI for the boxarchiver executable.
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/boxarchiver/internal/app"
)

const (
	promptText  = "Enter the box ID of the 'created articles' box to archive\n"
	promptURL   = "https://mery.jp/boxes/"
	invalidText = "Please enter an integer"
)

// Runner is what the root command needs from the application.
// This allows us to inject a fake app during tests.
type Runner interface {
	Run(ctx context.Context, boxID int64) error
	Close()
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfgFile string, out io.Writer) (Runner, error) {
	return app.New(ctx, cfgFile, out, app.Options{})
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "boxarchiver",
		Short: "Archive every article of a mery.jp box as PDF.",
		Long: `boxarchiver asks for the numeric id of a writer's "created articles" box,
collects the URL of every article in it and saves each article as a
print-ready document under a directory named after the writer.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			boxID, ok := readBoxID(cmd.InOrStdin(), cmd.OutOrStdout())
			if !ok {
				return nil
			}

			a, err := newApp(cmd.Context(), cfgFile, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			defer a.Close()

			return a.Run(cmd.Context(), boxID)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./config.yaml, /etc/boxarchiver/ or $HOME/.boxarchiver/)")
	return cmd
}

// readBoxID prompts for a box id on out and reads one line from in. It
// prints a hint and reports false unless the line is a positive integer.
func readBoxID(in io.Reader, out io.Writer) (int64, bool) {
	_, _ = fmt.Fprint(out, promptText, promptURL)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		_, _ = fmt.Fprintln(out, invalidText)
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil || id <= 0 {
		_, _ = fmt.Fprintln(out, invalidText)
		return 0, false
	}
	return id, true
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "boxarchiver: %v\n", err)
		stop()
		os.Exit(1)
	}
}
