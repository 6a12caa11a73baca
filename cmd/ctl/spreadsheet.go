package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Export the clients visible to an account into a workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Import clients from a workbook on behalf of an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)

	exportCmd.Flags().String("as", "", "Account id to act as (required)")
	importCmd.Flags().String("as", "", "Account id to act as (required)")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	uid, _ := cmd.Flags().GetString("as")
	session, err := sessionFor(ctx, app, uid)
	if err != nil {
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	count, err := app.Sheets.Export(ctx, session, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d clients to %s\n", count, args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	uid, _ := cmd.Flags().GetString("as")
	session, err := sessionFor(ctx, app, uid)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := app.Sheets.Import(ctx, session, f)
	if err != nil {
		return err
	}
	for _, msg := range result.Messages {
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d clients, %d errors\n", result.Imported, result.Errors)
	return nil
}
