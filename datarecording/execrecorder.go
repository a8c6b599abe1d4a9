package datarecording

import (
	"os"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05.000000000"

type execInfo struct {
	Property string
	Value    string
}

// An ExecRecorder records how the program was launched, and any other
// property of the run, into the exec_info table.
type ExecRecorder struct {
	tableName string
	recorder  DataRecorder
	entries   []execInfo
}

// NewExecRecorder creates the exec_info table in the recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	e := &ExecRecorder{
		tableName: "exec_info",
		recorder:  recorder,
	}

	e.recorder.CreateTable(e.tableName, execInfo{})

	return e
}

// Start records the start time, the command line, and the working
// directory.
func (e *ExecRecorder) Start() {
	e.Record("Start Time", time.Now().Format(timeLayout))
	e.Record("Command", strings.Join(os.Args, " "))

	if wd, err := os.Getwd(); err == nil {
		e.Record("Working Directory", wd)
	}
}

// Record adds a property.
func (e *ExecRecorder) Record(property, value string) {
	e.entries = append(e.entries, execInfo{property, value})
}

// End writes the properties along with the end time.
func (e *ExecRecorder) End() {
	e.Record("End Time", time.Now().Format(timeLayout))

	for _, entry := range e.entries {
		e.recorder.InsertData(e.tableName, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}
