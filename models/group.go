package models

import "time"

// Group bundles images that share display overrides. Groups hold no images
// themselves; membership lives on Image.GroupID, so deleting a group can
// never delete a photo.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Overrides
}

// GroupUpdate is a partial update for a group. Nil fields are left untouched.
type GroupUpdate struct {
	Name       *string  `json:"name,omitempty"`
	MatColor   *string  `json:"mat_color,omitempty"`
	MatFinish  *string  `json:"mat_finish,omitempty"`
	BevelWidth *int     `json:"bevel_width,omitempty"`
	Scale      *float64 `json:"scale,omitempty"`
}
