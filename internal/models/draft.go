package models

// Draft is a local, unsaved edit of an Event's editable fields. Times are held
// in the timezone-naive local edit form ("2006-01-02T15:04").
type Draft struct {
	ID          int64
	CompanyName string
	Title       string
	EventType   string
	Status      string
	StartAt     string
	EndAt       string
	Location    string
	Memo        string
}

// Patch is a partial update payload keyed by wire field name. A missing key
// leaves the field unchanged; a nil value clears it.
type Patch map[string]any

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool { return len(p) == 0 }

// Fields returns the changed field names.
func (p Patch) Fields() []string {
	out := make([]string, 0, len(p))
	for _, f := range PatchFields {
		if _, ok := p[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// PatchFields lists the editable wire fields in a fixed order.
var PatchFields = []string{
	"company_name", "title", "event_type", "status",
	"start_at", "end_at", "location", "memo",
}
