package models

import (
	"encoding/json"
	"strings"
	"time"
)

// SceneDescription is the vision model's free-form JSON description of a photo.
type SceneDescription struct {
	Raw json.RawMessage
}

// Fields decodes the description into a generic map.
func (s SceneDescription) Fields() map[string]any {
	var m map[string]any
	if err := json.Unmarshal(s.Raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// Summary returns the description's "description" or "summary" text when present.
func (s SceneDescription) Summary() string {
	f := s.Fields()
	for _, k := range []string{"description", "summary", "mood", "setting"} {
		if v, ok := f[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (s SceneDescription) MarshalJSON() ([]byte, error) {
	if len(s.Raw) == 0 {
		return []byte("{}"), nil
	}
	return s.Raw, nil
}

func (s *SceneDescription) UnmarshalJSON(b []byte) error {
	s.Raw = append(s.Raw[:0], b...)
	return nil
}

// MusicParams are the search and scoring targets derived from a scene.
type MusicParams struct {
	SearchQuery   string   `json:"playlist_search_query"`
	TargetTempo   float64  `json:"target_tempo"`
	TargetEnergy  float64  `json:"target_energy"`
	TargetValence float64  `json:"target_valence"`
	SeedGenres    []string `json:"seed_genres"`
	Limit         int      `json:"limit"`
}

// Default parameter values applied by [MusicParams.WithDefaults].
const (
	DefaultTempo   = 120
	DefaultEnergy  = 0.5
	DefaultValence = 0.5
	DefaultLimit   = 20
)

// WithDefaults fills zero-valued targets. Energy and valence are clamped to [0, 1].
func (p MusicParams) WithDefaults() MusicParams {
	if p.TargetTempo <= 0 {
		p.TargetTempo = DefaultTempo
	}
	if p.TargetEnergy <= 0 {
		p.TargetEnergy = DefaultEnergy
	}
	if p.TargetValence <= 0 {
		p.TargetValence = DefaultValence
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	p.TargetEnergy = min(p.TargetEnergy, 1)
	p.TargetValence = min(p.TargetValence, 1)
	return p
}

// Query picks the catalog search query: the explicit query, the first two seed genres, or "pop music".
func (p MusicParams) Query() string {
	if q := strings.TrimSpace(p.SearchQuery); q != "" {
		return q
	}
	if len(p.SeedGenres) > 0 {
		return strings.Join(p.SeedGenres[:min(2, len(p.SeedGenres))], " ")
	}
	return "pop music"
}

// GeneratedTrack is a scored catalog track in a generated playlist.
type GeneratedTrack struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	ArtistID   int64   `json:"artist_id,omitempty"`
	Album      string  `json:"album"`
	AlbumID    int64   `json:"album_id,omitempty"`
	Duration   int     `json:"duration_seconds"`
	BPM        float64 `json:"bpm"`
	Rank       int     `json:"rank"`
	PreviewURL string  `json:"preview_url,omitempty"`
	Link       string  `json:"link,omitempty"`
	Score      float64 `json:"match_score"`
}

// Source converts the track to a matcher input.
func (g GeneratedTrack) Source() SourceTrack {
	return SourceTrack{Title: g.Title, Artist: g.Artist}
}

// Run is one persisted photo analysis and its generated playlist.
type Run struct {
	ID          string           `json:"id"`
	ImagePath   string           `json:"image_path"`
	Description SceneDescription `json:"description"`
	Params      MusicParams      `json:"params"`
	Tracks      []GeneratedTrack `json:"tracks"`
	VisionModel string           `json:"vision_model"`
	ParamsModel string           `json:"params_model"`
	CreatedAt   time.Time        `json:"created_at"`
}

// SourceTracks lists the run's tracks as matcher inputs.
func (r Run) SourceTracks() []SourceTrack {
	out := make([]SourceTrack, len(r.Tracks))
	for i, t := range r.Tracks {
		out[i] = t.Source()
	}
	return out
}

// ExportStatus is the persisted outcome of an export.
type ExportStatus string

const (
	ExportComplete ExportStatus = "complete"
	ExportPartial  ExportStatus = "partial"
	ExportFailed   ExportStatus = "failed"
)

// Export is one attempt to push a run to the destination service.
type Export struct {
	ID          string       `json:"id"`
	RunID       string       `json:"run_id"`
	PlaylistID  string       `json:"playlist_id"`
	PlaylistURL string       `json:"playlist_url"`
	Confirmed   int          `json:"confirmed"`
	Total       int          `json:"total"`
	Status      ExportStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ExportFrom records an assembly outcome against a run.
func ExportFrom(runID string, res AssemblyResult, err error) Export {
	e := Export{
		RunID:       runID,
		PlaylistID:  res.Playlist.ID,
		PlaylistURL: res.Playlist.URL,
		Confirmed:   res.Confirmed,
		Total:       res.Total,
		Message:     res.Summary(),
	}
	switch {
	case res.Complete() && err == nil:
		e.Status = ExportComplete
	case res.Created:
		e.Status = ExportPartial
	default:
		e.Status = ExportFailed
	}
	if err != nil {
		e.Message = err.Error()
	}
	return e
}

// Repository defines the data access operations for a persisted entity.
type Repository[T any] interface {
	Create(model *T) error       // Create inserts a new model, assigning its ID
	Get(id string) (*T, error)   // Get retrieves a model by its ID
	Delete(id string) error      // Delete removes a model by its ID
	List(limit int) ([]T, error) // List retrieves the newest models first
}
