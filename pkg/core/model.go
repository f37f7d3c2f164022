package core

import "time"

// ModelEntry is one generated aircraft available for play.
type ModelEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AssetRef  string    `json:"assetRef"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ModelHandle is a resolved, loadable 3D model.
type ModelHandle struct {
	ID     string
	Name   string
	Source string
	Data   []byte
	// Placeholder is set when the real asset could not be loaded and a
	// stand-in shape should be drawn instead.
	Placeholder bool
}
