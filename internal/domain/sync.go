package domain

import "time"

type DateRange struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// SyncResult aggregates one department sync over a date range.
type SyncResult struct {
	DepartmentKey  string        `json:"departmentKey"`
	TotalSaved     int           `json:"totalSaved"`
	New            int           `json:"new"`
	Updated        int           `json:"updated"`
	Skipped        int           `json:"skipped"`
	Errors         int           `json:"errors"`
	Published      int           `json:"published"`
	ProcessedDates []string      `json:"processedDates"`
	FailedDates    []string      `json:"failedDates"`
	DateRange      DateRange     `json:"dateRange"`
	Duration       time.Duration `json:"-"`
}

// Finalize fills DateRange from ProcessedDates.
func (r *SyncResult) Finalize() {
	r.DateRange = DateRange{}
	if n := len(r.ProcessedDates); n > 0 {
		start, end := r.ProcessedDates[0], r.ProcessedDates[n-1]
		r.DateRange.Start = &start
		r.DateRange.End = &end
	}
}

type DepartmentSweep struct {
	DepartmentKey string      `json:"departmentKey"`
	Result        *SyncResult `json:"result,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// SweepResult is the outcome of syncing every registered department.
type SweepResult struct {
	TotalSaved  int               `json:"totalSaved"`
	Departments []DepartmentSweep `json:"departments"`
}

// SyncState is the per-department bookkeeping kept between runs.
type SyncState struct {
	ID                int64      `json:"-"`
	DepartmentKey     string     `json:"departmentKey"`
	LastSyncedAt      time.Time  `json:"lastSyncedAt"`
	LastProcessedDate *time.Time `json:"lastProcessedDate"`
	TotalSynced       int64      `json:"totalSynced"`
	FailedDates       []string   `json:"failedDates"`
}
