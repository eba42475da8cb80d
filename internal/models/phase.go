package models

// Phase maps one sub-migration onto a band of the 0-100 progress scale.
// A single-type job runs in FullBand; the composite "all" job walks the
// CompositePhases table sequentially.
type Phase struct {
	Type       MigrationType `json:"type"`
	BaseOffset int           `json:"base_offset"`
	BandWidth  int           `json:"band_width"`
}

// FullBand is the phase of a standalone single-type job
var FullBand = Phase{BaseOffset: 0, BandWidth: 100}

// CompositePhases returns the ordered macro-progress bands of an "all" job.
// The first 10% is reserved for discovery/startup reporting.
func CompositePhases() []Phase {
	return []Phase{
		{Type: MigrationTypeMail, BaseOffset: 10, BandWidth: 40},
		{Type: MigrationTypeContacts, BaseOffset: 50, BandWidth: 25},
		{Type: MigrationTypeCalendar, BaseOffset: 75, BandWidth: 15},
		{Type: MigrationTypeDrive, BaseOffset: 90, BandWidth: 10},
	}
}

// Progress computes baseOffset + floor(processed/total*bandWidth).
// With an unknown or empty total the phase reports its base offset,
// avoiding a division by zero.
func (p Phase) Progress(processed, total int) int {
	if total <= 0 {
		return p.BaseOffset
	}
	if processed > total {
		processed = total
	}
	return p.BaseOffset + processed*p.BandWidth/total
}
