package model

import "time"

const (
	SettingRegistrationStatus = "registration_status"

	RegistrationOpen   = "open"
	RegistrationClosed = "closed"
)

// DefaultSettings are written on first start; existing keys are kept.
func DefaultSettings() map[string]string {
	return map[string]string{
		SettingRegistrationStatus: RegistrationOpen,
		"page_heading":            "Event Registration",
		"page_instructions":       "Fill in your details to receive your entry pass.",
		"page_logo":               "",
		"show_designation":        "true",
		"show_sector":             "true",
		"show_unit":               "true",
	}
}

type Sector struct {
	ID                int       `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Slug              string    `db:"slug" json:"slug"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	Units             []Unit    `db:"-" json:"units,omitempty"`
	RegistrationCount int       `db:"-" json:"registration_count,omitempty"`
}

type Unit struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	SectorID  int       `db:"sector_id" json:"sector_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Sector    *Sector   `db:"-" json:"sector,omitempty"`
}

// Registration is one attendee. Admitted is true iff AdmissionTime is set.
type Registration struct {
	ID            int        `db:"id" json:"id"`
	RegID         string     `db:"reg_id" json:"reg_id"`
	Name          string     `db:"name" json:"name"`
	Mobile        string     `db:"mobile" json:"mobile"`
	Designation   string     `db:"designation" json:"designation"`
	SectorID      int        `db:"sector_id" json:"sector_id"`
	UnitID        int        `db:"unit_id" json:"unit_id"`
	QRCode        string     `db:"qr_code" json:"qr_code"`
	Admitted      bool       `db:"admitted" json:"admitted"`
	AdmissionTime *time.Time `db:"admission_time" json:"admission_time"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	Sector        *Sector    `db:"-" json:"sector,omitempty"`
	Unit          *Unit      `db:"-" json:"unit,omitempty"`
}

type Setting struct {
	Key   string `db:"key" json:"key"`
	Value string `db:"value" json:"value"`
}

type Admin struct {
	ID           int    `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`
}

type SectorAdmin struct {
	ID           int     `db:"id" json:"id"`
	Username     string  `db:"username" json:"username"`
	PasswordHash string  `db:"password_hash" json:"-"`
	SectorID     int     `db:"sector_id" json:"sector_id"`
	Sector       *Sector `db:"-" json:"sector,omitempty"`
}

type NamedCount struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type AdminStats struct {
	Total            int          `json:"total"`
	TodayCount       int          `json:"today_count"`
	Admitted         int          `json:"admitted"`
	SectorStats      []NamedCount `json:"sector_stats"`
	UnitStats        []NamedCount `json:"unit_stats"`
	DesignationStats []NamedCount `json:"designation_stats"`
}

type SectorStats struct {
	Total     int          `json:"total"`
	Admitted  int          `json:"admitted"`
	UnitStats []NamedCount `json:"unit_stats"`
}
