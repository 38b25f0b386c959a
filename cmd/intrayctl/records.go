package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	recordsCmd := &cobra.Command{Use: "records", Short: "Record operations"}

	// list
	var statusFlag string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			u := apiFlag + "/v0/records"
			if statusFlag != "" {
				u += "?status=" + url.QueryEscape(statusFlag)
			}
			data, err := doGet(u)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	listCmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Filter by status (pending|analyzed|completed|canceled)")
	recordsCmd.AddCommand(listCmd)

	// create
	var textFlag string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Capture a text record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			data, err := doPostJSON(apiFlag+"/v0/records", map[string]interface{}{"text": textFlag})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	createCmd.Flags().StringVarP(&textFlag, "text", "t", "", "Capture text (required)")
	_ = createCmd.MarkFlagRequired("text")
	recordsCmd.AddCommand(createCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get RECORD_ID",
		Short: "Get a record by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			data, err := doGet(apiFlag + "/v0/records/" + url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	recordsCmd.AddCommand(getCmd)

	// cancel
	cancelCmd := &cobra.Command{
		Use:   "cancel RECORD_ID",
		Short: "Cancel a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if _, err := doDelete(apiFlag + "/v0/records/" + url.PathEscape(args[0])); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, "canceled")
			return nil
		},
	}
	recordsCmd.AddCommand(cancelCmd)

	rootCmd.AddCommand(recordsCmd)
}
