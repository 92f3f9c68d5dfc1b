package enums

// TermStatus describes a billing period relative to today.
type TermStatus string

const (
	TermStatusFuture    TermStatus = "future"
	TermStatusActive    TermStatus = "active"
	TermStatusExpired   TermStatus = "expired"
	TermStatusCancelled TermStatus = "cancelled"
	TermStatusPaused    TermStatus = "paused"
)

// String implements fmt.Stringer.
func (s TermStatus) String() string {
	return string(s)
}
