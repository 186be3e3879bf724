package audit

import "time"

const (
	ActionStoreInit   = "store.init"
	ActionStoreRotate = "store.rotate"

	ActionSecretSave   = "secret.save"
	ActionSecretReveal = "secret.reveal"
	ActionSecretClip   = "secret.clip"
)

var AllActionTypes = []string{
	ActionStoreInit,
	ActionStoreRotate,
	ActionSecretSave,
	ActionSecretReveal,
	ActionSecretClip,
}

type Event struct {
	Timestamp time.Time
	Action    string
	Target    string
	Details   map[string]any
}

type Filter struct {
	Action string
	Limit  int
}

type RecordedEvent struct {
	ID          string
	Timestamp   time.Time
	Action      string
	Target      string
	DetailsJSON string
}
