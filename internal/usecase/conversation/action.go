package conversation

import "tg-checkin-bot/internal/domain"

// ActionKind — административное действие, которое ведёт диалог.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionBroadcastText
	ActionBroadcastPhoto
	ActionBroadcastVideo
	ActionBroadcastFile
	ActionBroadcastLocation
	ActionBroadcastPoll
	ActionSetTarget
	ActionAssignAdmin
	ActionRevokeAdmin
	ActionClearRecentBroadcasts
)

var actionNames = map[ActionKind]string{
	ActionBroadcastText:         "broadcast_text",
	ActionBroadcastPhoto:        "broadcast_photo",
	ActionBroadcastVideo:        "broadcast_video",
	ActionBroadcastFile:         "broadcast_file",
	ActionBroadcastLocation:     "broadcast_location",
	ActionBroadcastPoll:         "broadcast_poll",
	ActionSetTarget:             "set_target",
	ActionAssignAdmin:           "assign_admin",
	ActionRevokeAdmin:           "revoke_admin",
	ActionClearRecentBroadcasts: "clear_recent_broadcasts",
}

func (a ActionKind) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "none"
}

// Valid сообщает, что действие известно.
func (a ActionKind) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

// payloadKind возвращает тип рассылки для медиа-действий.
func (a ActionKind) payloadKind() domain.PayloadKind {
	switch a {
	case ActionBroadcastPhoto:
		return domain.PayloadPhoto
	case ActionBroadcastVideo:
		return domain.PayloadVideo
	case ActionBroadcastFile:
		return domain.PayloadDocument
	case ActionBroadcastLocation:
		return domain.PayloadLocation
	case ActionBroadcastPoll:
		return domain.PayloadPoll
	default:
		return domain.PayloadText
	}
}

// EventKind — форма входящего события.
type EventKind int

const (
	EventText EventKind = iota
	EventPhoto
	EventVideo
	EventDocument
	EventLocation
)

// Event — входящее сообщение от администратора, уже разобранное транспортом.
type Event struct {
	Kind     EventKind
	Text     string
	FileID   string
	Location domain.Location
}

// mediaEvent возвращает вид вложения, который ожидает медиа-действие.
func mediaEvent(a ActionKind) EventKind {
	switch a {
	case ActionBroadcastPhoto:
		return EventPhoto
	case ActionBroadcastVideo:
		return EventVideo
	default:
		return EventDocument
	}
}

// Outcome — итог обработки шага.
type Outcome int

const (
	OutcomeAwaitInput Outcome = iota
	OutcomeForbidden
	OutcomeInsufficientPollOptions
	OutcomeTooManyPollOptions
	OutcomeFormatError
	OutcomeCancelled
	OutcomeBroadcastSent
	OutcomeTargetUpdated
	OutcomeAdminAdded
	OutcomeAdminRemoved
	OutcomePrimaryProtected
	OutcomeRetracted
	OutcomeFailed
)

var outcomeNames = [...]string{
	OutcomeAwaitInput:              "await_input",
	OutcomeForbidden:               "forbidden",
	OutcomeInsufficientPollOptions: "insufficient_poll_options",
	OutcomeTooManyPollOptions:      "too_many_poll_options",
	OutcomeFormatError:             "format_error",
	OutcomeCancelled:               "cancelled",
	OutcomeBroadcastSent:           "broadcast_sent",
	OutcomeTargetUpdated:           "target_updated",
	OutcomeAdminAdded:              "admin_added",
	OutcomeAdminRemoved:            "admin_removed",
	OutcomePrimaryProtected:        "primary_protected",
	OutcomeRetracted:               "retracted",
	OutcomeFailed:                  "failed",
}

func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Result — то, что транспорт должен показать администратору.
type Result struct {
	Action  ActionKind
	Step    int
	Outcome Outcome
	// Done — диалог завершён, состояние удалено.
	Done bool

	Text      string
	Options   []string
	Count     int
	Requested int
	Report    domain.DeliveryReport
	Target    domain.Target
	AdminID   int64
	Err       error
}
