package progress

// Reporter receives progress updates for an extraction job.
type Reporter interface {
	UpdateProgress(jobID string, percentage int)
}

// Tracker encapsulates progress updates for a specific job
type Tracker struct {
	jobID      string
	reporter   Reporter
	minPercent int
	maxPercent int
	total      int64
	current    int64
	last       int
}

// NewTracker creates a progress tracker for a job with a percentage range and a
// total amount of work in bytes.
func NewTracker(reporter Reporter, jobID string, total int64, minPercent, maxPercent int) *Tracker {
	return &Tracker{
		jobID:      jobID,
		reporter:   reporter,
		minPercent: minPercent,
		maxPercent: maxPercent,
		total:      total,
		last:       -1,
	}
}

// Add records n more bytes of work done.
func (pt *Tracker) Add(n int64) {
	if pt == nil {
		return
	}
	pt.Update(pt.current + n)
}

// Update reports progress within the configured percentage range. Progress
// never moves backwards, and repeated percentages are not re-sent.
func (pt *Tracker) Update(current int64) {
	if pt == nil {
		return
	}
	current = max(current, pt.current)
	pt.current = current
	if pt.total <= 0 || pt.reporter == nil {
		return
	}

	if current > pt.total {
		current = pt.total
	}
	rangeSize := int64(pt.maxPercent - pt.minPercent)
	percentage := pt.minPercent + int(current*rangeSize/pt.total)
	if percentage <= pt.last {
		return
	}
	pt.last = percentage
	pt.reporter.UpdateProgress(pt.jobID, percentage)
}

// Current returns the bytes recorded so far.
func (pt *Tracker) Current() int64 {
	if pt == nil {
		return 0
	}
	return pt.current
}
