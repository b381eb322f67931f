package types

import (
	"fmt"
	"strings"
)

// Mode selects what a run compares or syncs.
type Mode int

const (
	ModeSchema Mode = iota
	ModeView
	ModeProcedure
	ModeSyncView
	ModeSyncProcedure
)

var modeNames = map[string]Mode{
	"schema":         ModeSchema,
	"view":           ModeView,
	"procedure":      ModeProcedure,
	"sp":             ModeProcedure,
	"sync-view":      ModeSyncView,
	"sync-procedure": ModeSyncProcedure,
	"sync-sp":        ModeSyncProcedure,
}

// ParseMode converts a CLI mode string into a Mode. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	m, ok := modeNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown mode %q (valid: schema, view, procedure, sync-view, sync-procedure)", s)
	}
	return m, nil
}

func (m Mode) String() string {
	switch m {
	case ModeSchema:
		return "schema"
	case ModeView:
		return "view"
	case ModeProcedure:
		return "procedure"
	case ModeSyncView:
		return "sync-view"
	case ModeSyncProcedure:
		return "sync-procedure"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// IsSync reports whether the mode mutates targets.
func (m Mode) IsSync() bool {
	return m == ModeSyncView || m == ModeSyncProcedure
}

// ObjectType returns the kind of object the mode operates on.
func (m Mode) ObjectType() ObjectType {
	switch m {
	case ModeView, ModeSyncView:
		return View
	case ModeProcedure, ModeSyncProcedure:
		return StoredProcedure
	default:
		return Table
	}
}
