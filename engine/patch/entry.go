package patch

import (
	"fmt"
	"strings"

	"github.com/xiaonanln/protopatch/engine/common"
)

// Operation is how a patch value modifies the addressed location
type Operation int

const (
	OpSet Operation = iota
	OpAdd
	OpInsert
	OpRemove
	OpReplace
)

var operationNames = []string{"Set", "Add", "Insert", "Remove", "Replace"}

func (op Operation) String() string {
	if int(op) < len(operationNames) {
		return operationNames[op]
	}
	return "Invalid"
}

// ParseOperation parses an operation name ignoring case, "" is Set
func ParseOperation(s string) (Operation, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return OpSet, true
	}
	for i, name := range operationNames {
		if strings.EqualFold(name, s) {
			return Operation(i), true
		}
	}
	return OpSet, false
}

// Entry is one patch instruction against a target prototype
//
// Everything but the applied flag is read-only once the entry is loaded.
type Entry struct {
	Enabled     bool
	Target      string
	TargetRef   common.PrototypeID
	Path        string
	Description string
	Value       Value
	Operation   Operation
	Segments    Path

	Source string // file the entry was loaded from
	Seq    int    // load order across all files

	applied bool
}

// NewEntry creates an entry, parsing its path
func NewEntry(target string, path string, value Value, op Operation) *Entry {
	return &Entry{
		Enabled:   true,
		Target:    target,
		Path:      path,
		Value:     value,
		Operation: op,
		Segments:  ParsePath(path),
	}
}

// Applied returns if the entry has been applied
func (e *Entry) Applied() bool {
	return e.applied
}

func (e *Entry) markApplied() {
	e.applied = true
}

func (e *Entry) String() string {
	return fmt.Sprintf("[%s] %s (%s)", e.Target, e.Path, e.Operation)
}
