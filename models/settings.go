package models

// Slideshow interval bounds in seconds.
const (
	MinSlideshowInterval = 3
	MaxSlideshowInterval = 300
)

// TVSchedule is a single on/off window. Times are wall-clock "HH:MM" with no
// date; a window whose off-time is not after its on-time wraps past midnight.
// Days use 0=Monday .. 6=Sunday.
type TVSchedule struct {
	ID      string `json:"id"`
	OnTime  string `json:"on_time"`
	OffTime string `json:"off_time"`
	Days    []int  `json:"days"`
	Enabled bool   `json:"enabled"`
}

// Settings is the singleton display configuration read by every display
// client on load.
type Settings struct {
	MatColor           string       `json:"mat_color"`
	MatFinish          string       `json:"mat_finish"`
	BevelWidth         int          `json:"bevel_width"`
	SlideshowInterval  int          `json:"slideshow_interval"`
	TransitionDuration float64      `json:"transition_duration"`
	FitMode            string       `json:"fit_mode"`
	Shuffle            bool         `json:"shuffle"`
	ShowFilename       bool         `json:"show_filename"`
	TVSchedules        []TVSchedule `json:"tv_schedules"`
}

// SettingsUpdate is a partial update for Settings. Nil fields are untouched;
// TVSchedules replaces the whole list when provided.
type SettingsUpdate struct {
	MatColor           *string       `json:"mat_color,omitempty"`
	MatFinish          *string       `json:"mat_finish,omitempty"`
	BevelWidth         *int          `json:"bevel_width,omitempty"`
	SlideshowInterval  *int          `json:"slideshow_interval,omitempty"`
	TransitionDuration *float64      `json:"transition_duration,omitempty"`
	FitMode            *string       `json:"fit_mode,omitempty"`
	Shuffle            *bool         `json:"shuffle,omitempty"`
	ShowFilename       *bool         `json:"show_filename,omitempty"`
	TVSchedules        *[]TVSchedule `json:"tv_schedules,omitempty"`
}

// DefaultSettings returns the settings used when no record exists on disk.
func DefaultSettings() Settings {
	return Settings{
		MatColor:           "#2c2c2c",
		MatFinish:          "flat",
		BevelWidth:         4,
		SlideshowInterval:  10,
		TransitionDuration: 1,
		FitMode:            "contain",
		Shuffle:            false,
		ShowFilename:       false,
		TVSchedules:        []TVSchedule{},
	}
}
