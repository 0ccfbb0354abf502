package models

import "time"

// Capture records one completed document capture
type Capture struct {
	RunID      string   `json:"run_id" parquet:"run_id"`
	CapturedAt int64    `json:"captured_at" parquet:"captured_at"` // unix milliseconds
	Output     string   `json:"output" parquet:"output"`
	Pages      int      `json:"pages" parquet:"pages"`
	Mode       string   `json:"mode" parquet:"mode"`
	Color      string   `json:"color" parquet:"color"`
	PaperSize  string   `json:"paper_size" parquet:"paper_size"`
	Resolution int      `json:"resolution" parquet:"resolution"`
	Preset     string   `json:"preset,omitempty" parquet:"preset"`
	OCR        bool     `json:"ocr" parquet:"ocr"`
	Tags       []string `json:"tags" parquet:"tags,list"`
}

// Time returns CapturedAt as a time.Time
func (c Capture) Time() time.Time {
	return time.UnixMilli(c.CapturedAt)
}
