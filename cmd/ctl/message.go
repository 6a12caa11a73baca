package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"installment_app_echo/internal/services"
)

var sendTestMessageCmd = &cobra.Command{
	Use:   "send-test-message",
	Short: "Send a WhatsApp message through WAHA to check the integration",
	Example: `  ctl send-test-message --phone 89991234567
  ctl send-test-message --phone 120363000000000000@g.us --msg "hello group"`,
	RunE: runSendTestMessage,
}

func init() {
	rootCmd.AddCommand(sendTestMessageCmd)

	sendTestMessageCmd.Flags().String("phone", "", "Phone number or group chat id (required)")
	sendTestMessageCmd.Flags().String("msg", "Test message from the installment tracker", "Message body")
	_ = sendTestMessageCmd.MarkFlagRequired("phone")
}

func runSendTestMessage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	phone, _ := cmd.Flags().GetString("phone")
	msg, _ := cmd.Flags().GetString("msg")

	chatID := services.NormalizeChatID(phone)
	fmt.Fprintf(cmd.OutOrStdout(), "Sending message to %s\n", chatID)

	if err := app.Waha.SendMessage(ctx, chatID, msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Message sent successfully!")
	return nil
}
