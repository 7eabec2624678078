package models

import "time"

// Overrides holds the per-image (or per-group) display overrides. All fields
// are optional; nil means "inherit": an image falls back to its group's
// value, and a group falls back to the global settings.
type Overrides struct {
	MatColor   *string  `json:"mat_color,omitempty"`
	MatFinish  *string  `json:"mat_finish,omitempty"`
	BevelWidth *int     `json:"bevel_width,omitempty"`
	Scale      *float64 `json:"scale,omitempty"`
}

// Image is the catalog record for a single uploaded photo. The stored
// filename doubles as the stable ID.
type Image struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	Title        string    `json:"title"`
	UploadedBy   string    `json:"uploaded_by"`
	UploadedAt   time.Time `json:"uploaded_at"`
	SizeBytes    int64     `json:"size_bytes"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Enabled      bool      `json:"enabled"`
	// Order is the display slot. Across the whole catalog these form a
	// contiguous 0..N-1 permutation.
	Order int `json:"order"`
	// PHash is the hex-encoded 64-bit perceptual hash, empty until computed.
	PHash string `json:"phash,omitempty"`
	// GroupID is a weak reference; the group may supply default overrides.
	GroupID string `json:"group_id,omitempty"`
	Overrides
}

// ImageUpdate is a partial update (PATCH semantics). Nil fields are "not
// provided" and leave the stored value untouched.
type ImageUpdate struct {
	Enabled    *bool    `json:"enabled,omitempty"`
	Title      *string  `json:"title,omitempty"`
	MatColor   *string  `json:"mat_color,omitempty"`
	MatFinish  *string  `json:"mat_finish,omitempty"`
	BevelWidth *int     `json:"bevel_width,omitempty"`
	Scale      *float64 `json:"scale,omitempty"`
	// GroupID set to the empty string detaches the image from its group.
	GroupID *string `json:"group_id,omitempty"`
}

// DisplayImage is the trimmed projection served to the unauthenticated
// display client. It carries only what rendering needs; hidden images and
// management metadata (uploader, timestamps, hashes) never appear here.
type DisplayImage struct {
	Filename   string   `json:"filename"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	MatColor   *string  `json:"mat_color,omitempty"`
	MatFinish  *string  `json:"mat_finish,omitempty"`
	BevelWidth *int     `json:"bevel_width,omitempty"`
	Scale      float64  `json:"scale"`
	GroupID    string   `json:"group_id,omitempty"`
}
