package core

// Vec is a plain 3-component vector for serialized views.
type Vec [3]float64

// Rot is a quaternion as (x, y, z, w).
type Rot [4]float64

// CraftView is the render-facing state of one craft.
type CraftView struct {
	ID          int     `json:"id"`
	ModelID     string  `json:"modelId"`
	Position    Vec     `json:"position"`
	Orientation Rot     `json:"orientation"`
	Scale       float64 `json:"scale"`
	HP          int     `json:"hp,omitempty"`
	Placeholder bool    `json:"placeholder,omitempty"`
}

// BeamView is the render-facing state of one beam.
type BeamView struct {
	Owner     Owner   `json:"owner"`
	Start     Vec     `json:"start"`
	Direction Vec     `json:"direction"`
	Length    float64 `json:"length"`
	Width     float64 `json:"width"`
	Age       float64 `json:"age"`
}

// ExplosionView is the render-facing state of one explosion.
type ExplosionView struct {
	Position Vec     `json:"position"`
	Scale    float64 `json:"scale"`
	Opacity  float64 `json:"opacity"`
}

// Indicator is the HUD marker pointing at the off-screen player craft.
type Indicator struct {
	Visible  bool    `json:"visible"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Angle    float64 `json:"angle"`
	Distance float64 `json:"distance"`
	Label    string  `json:"label"`
}

// Stats are the running session counters.
type Stats struct {
	ShotsFired       int `json:"shotsFired"`
	Hits             int `json:"hits"`
	EnemiesDestroyed int `json:"enemiesDestroyed"`
}

// Snapshot is a copy of the simulation state for one rendered frame.
type Snapshot struct {
	SessionID  string          `json:"sessionId"`
	State      State           `json:"state"`
	Time       float64         `json:"time"`
	Score      int             `json:"score"`
	Stats      Stats           `json:"stats"`
	Alive      int             `json:"alive"`
	Player     CraftView       `json:"player"`
	Enemies    []CraftView     `json:"enemies"`
	Beams      []BeamView      `json:"beams"`
	Explosions []ExplosionView `json:"explosions"`
	HUD        Indicator       `json:"hud"`
	Result     *SessionResult  `json:"result,omitempty"`
}
