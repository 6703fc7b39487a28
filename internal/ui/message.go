package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgRunsFetched MsgKind = iota
	MsgProgressUpdate
	MsgExportComplete
)

type runsFetched struct {
	runs []models.Run
	err  error
}

type exportComplete struct {
	result *tasks.ExportResult
	err    error
}

// runsFetchedMsg is the constructor for [MsgRunsFetched]
func runsFetchedMsg(runs []models.Run, err error) Msg {
	return Msg{kind: MsgRunsFetched, data: runsFetched{runs, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(ev tasks.Event) Msg {
	return Msg{kind: MsgProgressUpdate, data: ev}
}

// exportCompleteMsg is the constructor for [MsgExportComplete]
func exportCompleteMsg(result *tasks.ExportResult, err error) Msg {
	return Msg{kind: MsgExportComplete, data: exportComplete{result, err}}
}
