package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"zubi/internal/messaging"
)

func newChatCmd() *cobra.Command {
	var phone string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to Zubi from the terminal",
		Long: `Reads messages from stdin and prints each reply part as it would be
delivered over WhatsApp. The configured store is used, so a conversation
started here continues on the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.PacingDelay = 0

			out := cmd.OutOrStdout()
			a, err := newApp(cmd.Context(), cfg, log, messaging.NewWriterSender(out))
			if err != nil {
				return err
			}
			defer a.Close()

			return runChat(cmd.Context(), a, phone, cmd.InOrStdin(), out)
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "5500000000000", "phone number identifying the conversation")
	return cmd
}

func runChat(ctx context.Context, a *app, phone string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Digite sua mensagem (Ctrl+D para sair).")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		a.chat.ProcessAndDeliver(ctx, phone, text)
	}
}
