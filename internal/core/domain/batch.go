package domain

import (
	"encoding/json"
	"time"
)

// BatchJobStatus is the remote state of an asynchronous mutate job.
type BatchJobStatus string

// Batch job statuses reported by the remote service.
const (
	BatchJobActive       BatchJobStatus = "ACTIVE"
	BatchJobAwaitingFile BatchJobStatus = "AWAITING_FILE"
	BatchJobDone         BatchJobStatus = "DONE"
	BatchJobCanceled     BatchJobStatus = "CANCELED"
	BatchJobUnknown      BatchJobStatus = "UNKNOWN"
)

// Pending reports whether the job may still produce a result.
func (s BatchJobStatus) Pending() bool {
	return s == BatchJobActive || s == BatchJobAwaitingFile
}

// String returns the status name.
func (s BatchJobStatus) String() string {
	return string(s)
}

// BatchJob is a server-side mutate job. It is created once by the caller
// and only changed by the remote service.
type BatchJob struct {
	// ID is the job resource name.
	ID string

	// CustomerID owns the job.
	CustomerID string

	// Status is the last status seen.
	Status BatchJobStatus

	// DownloadURL is set once results can be fetched.
	DownloadURL string

	// NextSequenceToken orders operation uploads.
	NextSequenceToken string
}

// Ready reports whether a result can be downloaded.
func (j BatchJob) Ready() bool {
	return j.DownloadURL != ""
}

// PollState is the client-side state of a poll.
type PollState string

// Poll states.
const (
	PollSubmitted PollState = "SUBMITTED"
	PollPolling   PollState = "POLLING"
	PollReady     PollState = "READY"
	PollExhausted PollState = "EXHAUSTED"
	PollFailed    PollState = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s PollState) Terminal() bool {
	return s == PollReady || s == PollExhausted || s == PollFailed
}

// PollResult is the outcome of polling one job.
type PollResult struct {
	JobID       string
	State       PollState
	DownloadURL string
	LastStatus  BatchJobStatus
	Queries     int
	Slept       time.Duration
	Err         error
}

// MutateOperation is a single operation in a batch mutate job.
// Operation holds the JSON body for the given Kind, for example
// {"create": {...}} under kind "campaignOperation".
type MutateOperation struct {
	Kind      string          `json:"kind"`
	Operation json.RawMessage `json:"operation"`
}

// OperationResult is the outcome of one uploaded operation.
type OperationResult struct {
	Index        int    `json:"index"`
	Success      bool   `json:"success"`
	ResourceName string `json:"resource_name,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BatchResult aggregates the chunks of a batch run.
type BatchResult struct {
	CustomerID string            `json:"customer_id"`
	Jobs       []string          `json:"jobs"`
	Results    []OperationResult `json:"results"`
}

// Succeeded returns the number of successful operations.
func (r *BatchResult) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

// Failed returns the number of failed operations.
func (r *BatchResult) Failed() int {
	return len(r.Results) - r.Succeeded()
}
