package domain

// MsPerHour is the number of milliseconds in one hour
const MsPerHour = 3_600_000

// AggregateSummary represents the reduction of a set of time records
type AggregateSummary struct {
	TotalDurationMs   int64              `json:"total_duration_ms"`
	ByCategory        map[Category]int64 `json:"by_category"`
	RecordCount       int                `json:"record_count"`
	MalformedCount    int                `json:"malformed_count"`
	ProductivityScore int                `json:"productivity_score"`
	ActiveHours       float64            `json:"active_hours"`
}

// NewAggregateSummary returns an empty summary with every known category present
func NewAggregateSummary() *AggregateSummary {
	byCategory := make(map[Category]int64, len(KnownCategories()))
	for _, c := range KnownCategories() {
		byCategory[c] = 0
	}
	return &AggregateSummary{ByCategory: byCategory}
}

// DailyBreakdown holds one summary per calendar day. MalformedCount covers records
// that could not be assigned to any day.
type DailyBreakdown struct {
	Days           map[string]*AggregateSummary `json:"days"`
	MalformedCount int                          `json:"malformed_count"`
}

// DailySummary represents a single day of a gap-filled series
type DailySummary struct {
	Date    string            `json:"date"`
	Summary *AggregateSummary `json:"summary"`
}

// MemberSummary is the summary of one owner's records over a resolved period
type MemberSummary struct {
	OwnerID string            `json:"owner_id"`
	Name    string            `json:"name,omitempty"`
	Period  Period            `json:"period"`
	Summary *AggregateSummary `json:"summary"`
}

// DailyReport is a gap-filled daily breakdown for one owner
type DailyReport struct {
	OwnerID        string         `json:"owner_id"`
	Period         Period         `json:"period"`
	Days           []DailySummary `json:"days"`
	MalformedCount int            `json:"malformed_count"`
}
