package heresy

// Collector accumulates heresies raised during a single rite. Warnings are
// kept for the final result; the first fatal heresy is latched so callers
// can short-circuit Stage/Promote without scanning the whole slice again.
type Collector struct {
	all   []*Heresy
	fatal *Heresy
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records h. It is a no-op if h is nil.
func (c *Collector) Add(h *Heresy) {
	if h == nil {
		return
	}
	c.all = append(c.all, h)
	if h.IsFatal() && c.fatal == nil {
		c.fatal = h
	}
}

// Fatal returns the first fatal heresy added, or nil if none.
func (c *Collector) Fatal() *Heresy {
	return c.fatal
}

// HasFatal reports whether a fatal heresy has been recorded.
func (c *Collector) HasFatal() bool {
	return c.fatal != nil
}

// All returns every heresy recorded, fatal and warning alike, in the order
// they were added.
func (c *Collector) All() []*Heresy {
	return c.all
}

// Warnings returns only the non-fatal heresies, in order.
func (c *Collector) Warnings() []*Heresy {
	var out []*Heresy
	for _, h := range c.all {
		if !h.IsFatal() {
			out = append(out, h)
		}
	}
	return out
}

// Result is the user-visible outcome of a rite.
type Result struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	Heresies   []*Heresy `json:"heresies,omitempty"`
	Artifacts  []string  `json:"artifacts,omitempty"`
	MerkleRoot string    `json:"merkle_root,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
}

// ExitCode follows the CLI wrapper convention: success -> 0, fatal heresy -> 1.
// Cancellation (130) is the caller's responsibility to detect separately,
// since it is a signal, not a Heresy.
func (r Result) ExitCode() int {
	if r.Success {
		return 0
	}
	return 1
}

// ToResult renders the collector into a rite Result.
func (c *Collector) ToResult(success bool, message string, artifacts []string) Result {
	return Result{
		Success:   success,
		Message:   message,
		Heresies:  c.all,
		Artifacts: artifacts,
	}
}
