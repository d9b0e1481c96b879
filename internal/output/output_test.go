package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_Status(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Status("→", "working")
	assert.Equal(t, "→ working\n", buf.String())

	buf.Reset()
	w.Status("", "no icon")
	assert.Equal(t, "   no icon\n", buf.String())
}

func TestWriter_Levels(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Successf("indexed %d chunks", 7)
	w.Warningf("%d chunks rejected", 2)
	w.Errorf("failed: %s", "boom")

	out := buf.String()
	assert.Contains(t, out, "✅ indexed 7 chunks\n")
	assert.Contains(t, out, "2 chunks rejected\n")
	assert.Contains(t, out, "❌ failed: boom\n")
}

func TestWriter_Detail(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Detail("chunks: %d", 12)
	assert.Equal(t, "   chunks: 12\n", buf.String())
}

func TestWriter_Plain(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Println("line")
	w.Printf("%s=%d\n", "count", 3)
	assert.Equal(t, "line\ncount=3\n", buf.String())
}
