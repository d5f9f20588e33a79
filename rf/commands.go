// Package rf encodes fireplace remote commands and transmits them as an
// on/off-keyed pulse train on a single output line.
package rf

import (
	"sort"
	"strconv"
)

// Command is the one byte button code carried in the first function segment.
// The high nibble selects the button, the low nibble carries its value.
type Command byte

const (
	PowerOn  Command = 0x01
	PowerOff Command = 0x02
	PilotOn  Command = 0x12
	PilotOff Command = 0x13
	Flame1   Command = 0x31
	Flame2   Command = 0x32
	Flame3   Command = 0x33
	Flame4   Command = 0x34
	Flame5   Command = 0x35
	Fan0     Command = 0x40
	Fan1     Command = 0x41
	Fan2     Command = 0x42
	Fan3     Command = 0x43
	Aux10    Command = 0x50
	Aux11    Command = 0x51
	Aux12    Command = 0x52
	Aux13    Command = 0x53
	Aux20    Command = 0x60
	Aux21    Command = 0x61
)

var commands = map[string]Command{
	"PowerOn":  PowerOn,
	"PowerOff": PowerOff,
	"PilotOn":  PilotOn,
	"PilotOff": PilotOff,
	"Flame1":   Flame1,
	"Flame2":   Flame2,
	"Flame3":   Flame3,
	"Flame4":   Flame4,
	"Flame5":   Flame5,
	"Fan0":     Fan0,
	"Fan1":     Fan1,
	"Fan2":     Fan2,
	"Fan3":     Fan3,
	"AUX10":    Aux10,
	"AUX11":    Aux11,
	"AUX12":    Aux12,
	"AUX13":    Aux13,
	"AUX20":    Aux20,
	"AUX21":    Aux21,
}

// Resolve looks up a command by its exact, case-sensitive name.
func Resolve(name string) (Command, bool) {
	c, ok := commands[name]
	return c, ok
}

// ResolveWithValue appends the decimal form of value to prefix and resolves
// the result, so ("Flame", 5) resolves "Flame5". Values outside the table
// simply do not resolve.
func ResolveWithValue(prefix string, value int) (Command, bool) {
	return Resolve(prefix + strconv.Itoa(value))
}

// Names returns every command name in the table, sorted.
func Names() []string {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
