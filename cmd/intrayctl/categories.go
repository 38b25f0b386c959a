package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	categoriesCmd := &cobra.Command{Use: "categories", Short: "Category operations"}

	// list
	var kindFlag string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			u := apiFlag + "/v0/categories"
			if kindFlag != "" {
				u += "?kind=" + url.QueryEscape(kindFlag)
			}
			data, err := doGet(u)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	listCmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Filter by kind (CALENDAR|MEMO)")
	categoriesCmd.AddCommand(listCmd)

	// add
	var addKind, addName string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a category",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			data, err := doPostJSON(apiFlag+"/v0/categories", map[string]interface{}{"kind": addKind, "name": addName})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	addCmd.Flags().StringVarP(&addKind, "kind", "k", "", "Category kind (CALENDAR|MEMO, required)")
	addCmd.Flags().StringVarP(&addName, "name", "n", "", "Category name (required)")
	_ = addCmd.MarkFlagRequired("kind")
	_ = addCmd.MarkFlagRequired("name")
	categoriesCmd.AddCommand(addCmd)

	// remove
	removeCmd := &cobra.Command{
		Use:   "remove CATEGORY_ID",
		Short: "Remove a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if _, err := doDelete(apiFlag + "/v0/categories/" + url.PathEscape(args[0])); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, "removed")
			return nil
		},
	}
	categoriesCmd.AddCommand(removeCmd)

	rootCmd.AddCommand(categoriesCmd)
}
