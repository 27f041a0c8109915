package model

import "time"

// Report is a citizen report pinned on the map.
type Report struct {
	ID                  string     `json:"id" db:"id"`
	Lat                 float64    `json:"lat" db:"lat"`
	Lng                 float64    `json:"lng" db:"lng"`
	Type                string     `json:"type" db:"type"`
	Category            string     `json:"category" db:"category"`
	Subcategory         string     `json:"subcategory" db:"subcategory"`
	Status              string     `json:"status" db:"status"`
	PhotoURL            *string    `json:"photo_url" db:"photo_url"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	AngryCount          int64      `json:"angry_count" db:"angry_count"`
	Repaired            bool       `json:"repaired" db:"repaired"`
	RepairedAt          *time.Time `json:"repaired_at" db:"repaired_at"`
	RepairRatingAvg     float64    `json:"repair_rating_avg" db:"repair_rating_avg"`
	RepairRatingCount   int64      `json:"repair_rating_count" db:"repair_rating_count"`
	UserID              *string    `json:"-" db:"user_id"`
	ReporterFingerprint *string    `json:"-" db:"reporter_fingerprint"`
}

// ReportColumns is the public column list for reports. Ownership columns
// (user_id, reporter_fingerprint) are never selected for API output.
var ReportColumns = []string{
	"id", "lat", "lng", "type", "category", "subcategory", "status", "photo_url",
	"created_at", "angry_count", "repaired", "repaired_at",
	"repair_rating_avg", "repair_rating_count",
}

// ReportCursor is the keyset position after the last report of a page.
type ReportCursor struct {
	Cursor   time.Time `json:"cursor"`
	CursorID string    `json:"cursor_id"`
}

// ReportPage is one page of the newest-first report listing.
type ReportPage struct {
	Data       []Report      `json:"data"`
	NextCursor *ReportCursor `json:"nextCursor"`
}

// RepairRating is one fingerprint's vote on the quality of a repair.
type RepairRating struct {
	ID          string    `db:"id"`
	ReportID    string    `db:"report_id"`
	Fingerprint string    `db:"fingerprint"`
	Rating      int       `db:"rating"`
	CreatedAt   time.Time `db:"created_at"`
}

// ContactRequest is a message left through the public contact form.
type ContactRequest struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Contact   string    `json:"contact" db:"contact"`
	Topic     string    `json:"topic" db:"topic"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
