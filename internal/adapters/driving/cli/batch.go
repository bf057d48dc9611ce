package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/adreports/internal/core/domain"
)

var (
	batchCustomer string
	batchFile     string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run Google Ads batch mutate jobs",
}

var batchSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Upload mutate operations as batch jobs and wait for results",
	Long: `Reads a JSON array of operations, for example
  [{"kind": "campaignOperation", "operation": {"update": {...}, "updateMask": "status"}}]
uploads them in chunks, runs each job and prints the per-operation results.`,
	RunE: runBatchSubmit,
}

var batchPollCmd = &cobra.Command{
	Use:   "poll <job-id>",
	Short: "Poll an existing batch job and print its results",
	Long: `Polls a batch job until it is done. The job may be given as its full resource
name or as a numeric ID together with --customer.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatchPoll,
}

func init() {
	batchSubmitCmd.Flags().StringVarP(&batchCustomer, "customer", "c", "", "Customer ID")
	batchSubmitCmd.Flags().StringVarP(&batchFile, "file", "f", "", "JSON file of operations")
	batchPollCmd.Flags().StringVarP(&batchCustomer, "customer", "c", "", "Customer ID")

	batchCmd.AddCommand(batchSubmitCmd)
	batchCmd.AddCommand(batchPollCmd)
	rootCmd.AddCommand(batchCmd)
}

func runBatchSubmit(cmd *cobra.Command, _ []string) error {
	if batchRunner == nil {
		return errors.New("batch service not configured")
	}
	if batchCustomer == "" || batchFile == "" {
		return errors.New("--customer and --file are required")
	}

	ops, err := readOperations(batchFile)
	if err != nil {
		return err
	}

	cmd.Printf("Submitting %d operations for %s...\n", len(ops), batchCustomer)
	result, err := batchRunner.Submit(context.Background(), batchCustomer, ops)
	if result != nil {
		cmd.Printf("Jobs: %s\n", strings.Join(result.Jobs, ", "))
		printOperationResults(cmd, result.Results)
		cmd.Printf("%d succeeded, %d failed\n", result.Succeeded(), result.Failed())
	}
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}
	return nil
}

func runBatchPoll(cmd *cobra.Command, args []string) error {
	if batchRunner == nil {
		return errors.New("batch service not configured")
	}

	jobID := args[0]
	if !strings.HasPrefix(jobID, "customers/") {
		if batchCustomer == "" {
			return errors.New("--customer is required when the job is not a resource name")
		}
		customer := strings.ReplaceAll(batchCustomer, "-", "")
		jobID = fmt.Sprintf("customers/%s/batchJobs/%s", customer, jobID)
	}

	cmd.Printf("Polling %s...\n", jobID)
	results, err := batchRunner.Await(context.Background(), jobID)
	if err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}
	printOperationResults(cmd, results)
	return nil
}

func readOperations(path string) ([]domain.MutateOperation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read operations: %w", err)
	}
	var ops []domain.MutateOperation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("parse operations: %w", err)
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("%s contains no operations", path)
	}
	for i, op := range ops {
		if op.Kind == "" || len(op.Operation) == 0 {
			return nil, fmt.Errorf("operation %d: kind and operation are required", i)
		}
	}
	return ops, nil
}

func printOperationResults(cmd *cobra.Command, results []domain.OperationResult) {
	for _, r := range results {
		if r.Success {
			cmd.Printf("  %4d ok      %s\n", r.Index, r.ResourceName)
			continue
		}
		cmd.Printf("  %4d FAILED  %s\n", r.Index, r.Error)
	}
}
