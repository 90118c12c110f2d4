package jobs

import (
	jobmetrics "github.com/odyssey-erp/odyssey-books/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueCritical carries manually triggered ledger checks.
	QueueCritical = "critical"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)
