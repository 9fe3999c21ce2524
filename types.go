package longpoll

import "github.com/arloliu/longpoll/types"

// Re-export types from the types subpackage.
//
// This file provides a stable public API for the library's core types and
// interfaces via type aliases. Internal packages depend on `types` directly,
// which avoids import cycles while still giving users the convenient
// `longpoll.Message`, `longpoll.Registry`, etc.
type (
	Message     = types.Message
	MessageKind = types.MessageKind
)

// Re-export interfaces from the types subpackage for convenience.
type (
	AccessContext        = types.AccessContext
	VisibilityFilter     = types.VisibilityFilter
	VisibilityFilterFunc = types.VisibilityFilterFunc
	Registry             = types.Registry
	Logger               = types.Logger
	MetricsCollector     = types.MetricsCollector
	Hooks                = types.Hooks
)

// Re-export message kind constants from the types subpackage.
const (
	KindNotify = types.KindNotify
	KindPoll   = types.KindPoll
	KindCommit = types.KindCommit
)
