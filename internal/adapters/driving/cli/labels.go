package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var labelsCustomer string

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List and create Google Ads labels",
}

var labelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the enabled labels of a customer",
	RunE:  runLabelsList,
}

var labelsEnsureCmd = &cobra.Command{
	Use:   "ensure <name>",
	Short: "Print a label, creating it if it does not exist",
	Args:  cobra.ExactArgs(1),
	RunE:  runLabelsEnsure,
}

func init() {
	labelsListCmd.Flags().StringVarP(&labelsCustomer, "customer", "c", "", "Customer ID")
	labelsEnsureCmd.Flags().StringVarP(&labelsCustomer, "customer", "c", "", "Customer ID")

	labelsCmd.AddCommand(labelsListCmd)
	labelsCmd.AddCommand(labelsEnsureCmd)
	rootCmd.AddCommand(labelsCmd)
}

func runLabelsList(cmd *cobra.Command, _ []string) error {
	if labelManager == nil {
		return errors.New("label service not configured")
	}
	if labelsCustomer == "" {
		return errors.New("--customer is required")
	}

	list, err := labelManager.List(context.Background(), labelsCustomer)
	if err != nil {
		return fmt.Errorf("list labels: %w", err)
	}
	if len(list) == 0 {
		cmd.Println("No labels.")
		return nil
	}
	for _, l := range list {
		cmd.Printf("%-14s %s\n", l.ID, l.Name)
	}
	return nil
}

func runLabelsEnsure(cmd *cobra.Command, args []string) error {
	if labelManager == nil {
		return errors.New("label service not configured")
	}
	if labelsCustomer == "" {
		return errors.New("--customer is required")
	}

	label, err := labelManager.Ensure(context.Background(), labelsCustomer, args[0])
	if err != nil {
		return fmt.Errorf("ensure label: %w", err)
	}
	cmd.Printf("%s  %s  %s\n", label.ID, label.Name, label.ResourceName)
	return nil
}
