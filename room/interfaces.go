package room

import (
	"context"

	"github.com/wfunc/rajamantri/models"
)

// Broadcaster receives room events after they are committed.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	Publish(ctx context.Context, event models.Event) error
}

// Recorder counts room activity. monitor.Metrics satisfies it.
type Recorder interface {
	RoomCreated()
	PlayerJoined()
}

type nopRecorder struct{}

func (nopRecorder) RoomCreated()  {}
func (nopRecorder) PlayerJoined() {}
