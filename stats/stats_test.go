package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecord(t *testing.T) {
	assert := assert.New(t)
	ops := make([]Op, 2)
	start := time.Now().Add(-2 * time.Millisecond)
	ops[0].Record(start)
	ops[0].Record(start)
	rows := Snapshot([]string{"read", "write"}, ops)
	assert.Equal(uint32(2), rows[0].Count)
	assert.Greater(rows[0].Micros, 1000.0)
	assert.Equal(uint32(0), rows[1].Count)
	assert.Equal(0.0, rows[1].Micros)
}

func TestTable(t *testing.T) {
	ops := make([]Op, 2)
	ops[1].Record(time.Now())
	s := FormatTable([]string{"read", "write"}, ops)
	assert.Contains(t, s, "write")
	assert.NotContains(t, s, "read", "unused ops are skipped")
	assert.Contains(t, s, "total")
}

func TestCSV(t *testing.T) {
	assert := assert.New(t)
	ops := make([]Op, 2)
	ops[0].Record(time.Now())
	var buf bytes.Buffer
	assert.NoError(WriteCSV([]string{"open", "close"}, ops, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(lines, 3)
	assert.Equal("op,count,us_per_op", lines[0])
	assert.True(strings.HasPrefix(lines[1], "open,1,"))
	assert.True(strings.HasPrefix(lines[2], "close,0,"))
}

func TestMismatch(t *testing.T) {
	assert.Panics(t, func() { Snapshot([]string{"a"}, nil) })
}
