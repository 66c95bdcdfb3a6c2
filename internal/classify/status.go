package classify

import "fmt"

// Status is the terminal outcome for one read. Values are ordered so that
// output channels can select "at least" a status.
type Status int

const (
	NoV Status = iota
	NoJ
	NoCDR3
	InDel
	Stop
	Good
)

var statusNames = [...]string{"noV", "noJ", "noCDR3", "indel", "stop", "good"}

func (s Status) String() string {
	if s < NoV || s > Good {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Found reports whether both V and J were assigned.
func (s Status) Found() bool {
	return s >= NoCDR3
}

// HasJunction reports whether a usable junction boundary was located.
func (s Status) HasJunction() bool {
	return s >= InDel
}

// Statuses lists the statuses in order.
var Statuses = []Status{NoV, NoJ, NoCDR3, InDel, Stop, Good}

// ParseStatus parses a status name as written in output files.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}
