package types

// ActivityLogEntry is one login/usage event, bounded per uuid to the most
// recent entries by the activity service. All free text fields are encrypted
// at rest.
type ActivityLogEntry struct {
	ID           string `json:"_id,omitempty"`
	UUID         string `json:"uuid"`
	Action       string `json:"action"`
	Agent        string `json:"agent,omitempty"`
	Referer      string `json:"referer,omitempty"`
	IP           string `json:"ip,omitempty"`
	ActivityDate string `json:"activity_date"`
}

// SensitiveFields lists the encrypted fields of an activity entry.
func (e *ActivityLogEntry) SensitiveFields() []*string {
	return []*string{&e.UUID, &e.Action, &e.Agent, &e.Referer, &e.IP}
}
