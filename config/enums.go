package config

import (
	"fmt"
	"strings"
)

// OutputFmt selects sink used by convert command.
type OutputFmt int

const (
	OutputFmtAss OutputFmt = iota
	OutputFmtYaml
	OutputFmtText
	OutputFmtSqlite
)

var outputFmtNames = []string{"ass", "yaml", "text", "sqlite"}

// OutputFmtNames returns names of all supported output formats.
func OutputFmtNames() []string {
	return append([]string(nil), outputFmtNames...)
}

func (o OutputFmt) String() string {
	if o < 0 || int(o) >= len(outputFmtNames) {
		return fmt.Sprintf("OutputFmt(%d)", int(o))
	}
	return outputFmtNames[o]
}

// ParseOutputFmt is case insensitive.
func ParseOutputFmt(name string) (OutputFmt, error) {
	for i, n := range outputFmtNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return OutputFmt(i), nil
		}
	}
	return 0, fmt.Errorf("%q is not a valid output format, try [%s]", name, strings.Join(outputFmtNames, ", "))
}

func (o OutputFmt) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *OutputFmt) UnmarshalText(text []byte) error {
	v, err := ParseOutputFmt(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func (o OutputFmt) Ext() string {
	switch o {
	case OutputFmtAss:
		return ".ass"
	case OutputFmtYaml:
		return ".yaml"
	case OutputFmtText:
		return ".txt"
	case OutputFmtSqlite:
		return ".db"
	default:
		// this should never happen
		panic("unsupported format requested")
	}
}

// PacketOrder selects order in which demuxed packets are handed to decoder.
type PacketOrder int

const (
	PacketOrderTimestamp PacketOrder = iota
	PacketOrderInsertion
)

func (o PacketOrder) String() string {
	if o == PacketOrderInsertion {
		return "insertion"
	}
	return "timestamp"
}

func (o PacketOrder) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *PacketOrder) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "timestamp", "":
		*o = PacketOrderTimestamp
	case "insertion":
		*o = PacketOrderInsertion
	default:
		return fmt.Errorf("%q is not a valid packet order, try [timestamp, insertion]", text)
	}
	return nil
}
