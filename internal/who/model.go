package who

import "time"

// Indicator is one WHO reference data point.
type Indicator struct {
	ID         string    `json:"id"`
	Country    string    `json:"country"`
	Year       int       `json:"year"`
	Indicator  string    `json:"indicator"`
	Value      float64   `json:"value"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadInfo describes a processed reference data upload.
type UploadInfo struct {
	Filename   string   `json:"filename"`
	Rows       int      `json:"rows"`
	Columns    []string `json:"columns"`
	Stored     int      `json:"stored"`
	UploadTime string   `json:"upload_time"`
}
