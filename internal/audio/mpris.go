package audio

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const mprisVolume = "org.mpris.MediaPlayer2.Player.Volume"

type propertySetter interface {
	SetProperty(p string, v interface{}) error
}

// MPRISSink sets the volume of a media player on the session bus.
type MPRISSink struct {
	conn *dbus.Conn
	obj  propertySetter
}

// NewMPRISSink connects to the session bus and targets the MPRIS player
// called player, e.g. "shairport_sync".
func NewMPRISSink(player string) (*MPRISSink, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("mpris: connect session bus: %w", err)
	}
	obj := conn.Object("org.mpris.MediaPlayer2."+player, "/org/mpris/MediaPlayer2")
	return &MPRISSink{conn: conn, obj: obj}, nil
}

func (s *MPRISSink) SetOutputVolume(ctx context.Context, percent int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.obj.SetProperty(mprisVolume, dbus.MakeVariant(float64(percent)/100)); err != nil {
		return fmt.Errorf("mpris: set volume: %w", err)
	}
	return nil
}

// Close releases the bus connection.
func (s *MPRISSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
