// Package stats tracks operation counts and latencies.
package stats

import (
	"bytes"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rodaine/table"
)

type Op struct {
	count uint32
	nanos uint64
}

func (op *Op) Record(start time.Time) {
	atomic.AddUint32(&op.count, 1)
	dur := time.Since(start)
	atomic.AddUint64(&op.nanos, uint64(dur.Nanoseconds()))
}

func (op *Op) load() Op {
	return Op{
		count: atomic.LoadUint32(&op.count),
		nanos: atomic.LoadUint64(&op.nanos),
	}
}

func (op Op) Count() uint32 {
	return op.count
}

func (op Op) MicrosPerOp() float64 {
	if op.count == 0 {
		return 0
	}
	return float64(op.nanos) / float64(op.count) / 1e3
}

// Row is one line of an exported report.
type Row struct {
	Name   string  `csv:"op"`
	Count  uint32  `csv:"count"`
	Micros float64 `csv:"us_per_op"`
}

// Snapshot reads ops atomically and pairs them with names.
func Snapshot(names []string, ops []Op) []Row {
	if len(names) != len(ops) {
		panic("mismatched names and ops lists")
	}
	rows := make([]Row, len(ops))
	for i := range ops {
		op := ops[i].load()
		rows[i] = Row{Name: names[i], Count: op.count, Micros: op.MicrosPerOp()}
	}
	return rows
}

func WriteTable(names []string, ops []Op, w io.Writer) {
	tbl := table.New("op", "count", "us").WithWriter(w)
	var total Op
	for i := range ops {
		op := ops[i].load()
		total.count += op.count
		total.nanos += op.nanos
	}
	for _, r := range Snapshot(names, ops) {
		if r.Count == 0 {
			continue
		}
		tbl.AddRow(r.Name, r.Count, fmt.Sprintf("%0.1f us/op", r.Micros))
	}
	totalMicros := float64(total.nanos) / 1e3
	tbl.AddRow("total", total.count, fmt.Sprintf("%0.1f us", totalMicros))
	tbl.Print()
}

func FormatTable(names []string, ops []Op) string {
	buf := new(bytes.Buffer)
	WriteTable(names, ops, buf)
	return buf.String()
}

// WriteCSV writes every op, including unused ones.
func WriteCSV(names []string, ops []Op, w io.Writer) error {
	rows := Snapshot(names, ops)
	return gocsv.Marshal(&rows, w)
}
