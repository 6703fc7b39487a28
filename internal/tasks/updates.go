package tasks

import "github.com/desertthunder/pictune/internal/models"

// Event is a progress notification from a long-running engine operation.
//
// Events carry data only; the CLI and UI layers decide how to render them. Data by kind and phase:
//
//	started   match: nil; assemble: playlist name (string); generate: search query (string)
//	matched   match: [models.MatchResult]; assemble: [BatchAdded]; generate: [PlaylistFetched]
//	unmatched match: [models.MatchResult]
//	completed match: []models.MatchResult; assemble: [models.AssemblyResult]; generate: *[GenerateResult]
//	failed    error
type Event struct {
	Kind  EventKind
	Phase Phase
	Step  int // Current step number within phase
	Total int // Total steps in this phase
	Data  any
}

// BatchAdded reports one add-items call against the new playlist.
type BatchAdded struct {
	Confirmed int // Tracks confirmed so far
	Tracks    int // Tracks requested in total
}

// PlaylistFetched reports one catalog playlist loaded during generation.
type PlaylistFetched struct {
	Title  string
	Tracks int
}

// EventKind says what happened.
type EventKind int

const (
	EventStarted EventKind = iota
	EventMatched
	EventUnmatched
	EventCompleted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventMatched:
		return "matched"
	case EventUnmatched:
		return "unmatched"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return ""
	}
}

// Operation phase enumeration
type Phase int

const (
	PhaseMatch Phase = iota
	PhaseAssemble
	PhaseGenerate
)

func (p Phase) String() string {
	switch p {
	case PhaseMatch:
		return "match"
	case PhaseAssemble:
		return "assemble"
	case PhaseGenerate:
		return "generate"
	default:
		return ""
	}
}

func startedEvent(phase Phase, total int, data any) Event {
	return Event{Kind: EventStarted, Phase: phase, Total: total, Data: data}
}

func matchEvent(step, total int, res models.MatchResult) Event {
	kind := EventMatched
	if !res.Found {
		kind = EventUnmatched
	}
	return Event{Kind: kind, Phase: PhaseMatch, Step: step, Total: total, Data: res}
}

func batchEvent(step, total, confirmed, tracks int) Event {
	return Event{
		Kind:  EventMatched,
		Phase: PhaseAssemble,
		Step:  step,
		Total: total,
		Data:  BatchAdded{Confirmed: confirmed, Tracks: tracks},
	}
}

func fetchedEvent(step, total int, title string, count int) Event {
	return Event{
		Kind:  EventMatched,
		Phase: PhaseGenerate,
		Step:  step,
		Total: total,
		Data:  PlaylistFetched{Title: title, Tracks: count},
	}
}

func completedEvent(phase Phase, step, total int, data any) Event {
	return Event{Kind: EventCompleted, Phase: phase, Step: step, Total: total, Data: data}
}

func failedEvent(phase Phase, step, total int, err error) Event {
	return Event{Kind: EventFailed, Phase: phase, Step: step, Total: total, Data: err}
}
