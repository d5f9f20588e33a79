package main

import (
	"strconv"
	"strings"

	"fireplacerf/rf"
)

type ChannelKind int

const (
	SwitchChannel ChannelKind = iota // ON/OFF payloads
	LevelChannel                     // integer payloads in [Min, Max]
)

// Channel is one controllable function of the fireplace, exposed as the
// MQTT topics <instance>/<Name>/cmnd and <instance>/<Name>/stat and as
// PUT /api/channel/<Name>.
type Channel struct {
	Name     string
	Label    string
	Kind     ChannelKind
	Min, Max int
	Icon     string

	// command names that set this channel when pressed on their own
	onCommand, offCommand string // switches
	prefix                string // levels: prefix + value

	on, off func(*rf.Fireplace) error
	set     func(*rf.Fireplace, int) error
}

// Power runs the full start/stop sequences rather than the bare buttons, so
// the fireplace always comes up with the fan off and the lowest flame.
var channels = []Channel{
	{
		Name: "power", Label: "Fireplace Power", Kind: SwitchChannel, Icon: "mdi:fireplace",
		onCommand: "PowerOn", offCommand: "PowerOff",
		on:  (*rf.Fireplace).StartSequence,
		off: (*rf.Fireplace).StopSequence,
	},
	{
		Name: "flame", Label: "Fireplace Flame", Kind: LevelChannel, Min: 1, Max: 5, Icon: "mdi:fire",
		prefix: "Flame",
		set:    (*rf.Fireplace).SetFlame,
	},
	{
		Name: "light", Label: "Fireplace Light", Kind: LevelChannel, Min: 0, Max: 3, Icon: "mdi:lightbulb",
		prefix: "AUX1",
		set:    (*rf.Fireplace).SetAux1,
	},
	{
		Name: "fan", Label: "Fireplace Fan", Kind: LevelChannel, Min: 0, Max: 3, Icon: "mdi:fan",
		prefix: "Fan",
		set:    (*rf.Fireplace).SetFan,
	},
	{
		Name: "aux2", Label: "Fireplace Aux 2", Kind: LevelChannel, Min: 0, Max: 1, Icon: "mdi:power-socket",
		prefix: "AUX2",
		set:    (*rf.Fireplace).SetAux2,
	},
	{
		Name: "pilot", Label: "Fireplace Pilot", Kind: SwitchChannel, Icon: "mdi:fire-circle",
		onCommand: "PilotOn", offCommand: "PilotOff",
		on:  (*rf.Fireplace).PilotOn,
		off: (*rf.Fireplace).PilotOff,
	},
}

func lookupChannel(name string) (*Channel, bool) {
	for i := range channels {
		if channels[i].Name == name {
			return &channels[i], true
		}
	}
	return nil, false
}

// apply presses the button(s) behind value on f.
func (ch *Channel) apply(f *rf.Fireplace, value int) error {
	if ch.Kind == SwitchChannel {
		if value != 0 {
			return ch.on(f)
		}
		return ch.off(f)
	}
	return ch.set(f, value)
}

// commandChannel maps a raw command name back to the channel value it sets.
// A raw PowerOn only sets power; the start sequence is not implied.
func commandChannel(name string) (*Channel, int, bool) {
	for i := range channels {
		ch := &channels[i]
		switch {
		case ch.Kind == SwitchChannel && name == ch.onCommand:
			return ch, 1, true
		case ch.Kind == SwitchChannel && name == ch.offCommand:
			return ch, 0, true
		case ch.Kind == LevelChannel && strings.HasPrefix(name, ch.prefix):
			v, err := strconv.Atoi(name[len(ch.prefix):])
			if err == nil && v >= ch.Min && v <= ch.Max {
				return ch, v, true
			}
		}
	}
	return nil, 0, false
}
