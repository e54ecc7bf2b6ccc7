// internal/script/operation.go
package script

import "fmt"

// Operation is the closed set of actions an operation node can request.
type Operation int

const (
	OpSelect Operation = iota + 1
	OpKeys
	OpWait
	OpCaptureList
	OpLoop
	OpClick
	OpClickListItem
	OpSnapshot
)

var operationNames = map[Operation]string{
	OpSelect:        "select",
	OpKeys:          "keys",
	OpWait:          "wait",
	OpCaptureList:   "captureList",
	OpLoop:          "loop",
	OpClick:         "click",
	OpClickListItem: "clickListItem",
	OpSnapshot:      "snapshot",
}

var operationsByName = func() map[string]Operation {
	m := make(map[string]Operation, len(operationNames))
	for op, name := range operationNames {
		m[name] = op
	}
	return m
}()

// ParseOperation maps an operation tag to its Operation.
func ParseOperation(tag string) (Operation, error) {
	if op, ok := operationsByName[tag]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("unknown operation %q", tag)
}

func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}
