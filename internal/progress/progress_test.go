package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	started  int64
	updates  []int64
	finished bool
	err      error
}

func (r *recorder) Start(total int64, description string) { r.started = total }
func (r *recorder) Update(current int64)                  { r.updates = append(r.updates, current) }
func (r *recorder) Finish()                               { r.finished = true }
func (r *recorder) Error(err error)                       { r.err = err }
func (r *recorder) SetDescription(desc string)            {}

func TestCopyReportsProgress(t *testing.T) {
	rec := &recorder{}
	var dst bytes.Buffer

	n, err := Copy(&dst, strings.NewReader("hello world"), 11, "test", rec)
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	assert.Equal(t, "hello world", dst.String())
	assert.Equal(t, int64(11), rec.started)
	assert.True(t, rec.finished)
	require.NotEmpty(t, rec.updates)
	assert.Equal(t, int64(11), rec.updates[len(rec.updates)-1])
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestCopyReportsError(t *testing.T) {
	rec := &recorder{}
	_, err := Copy(&bytes.Buffer{}, failingReader{}, -1, "test", rec)
	require.Error(t, err)
	assert.EqualError(t, rec.err, "boom")
	assert.False(t, rec.finished)
}

func TestReaderCount(t *testing.T) {
	r := NewReader(strings.NewReader("abcdef"), NewNoOpProgress())
	buf := make([]byte, 4)
	_, _ = r.Read(buf)
	assert.Equal(t, int64(4), r.Count())
}

func TestCLIProgressWritesToOutput(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIProgress(&out)
	p.Start(100, "upload")
	p.Update(50)
	p.Finish()
	assert.Contains(t, out.String(), "upload")
}
