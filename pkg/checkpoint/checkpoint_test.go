package checkpoint

import (
	"io/ioutil"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestDir(t *testing.T) (string, func()) {
	dir, err := ioutil.TempDir("", "undorequest-checkpoint-test")
	assert.Nil(t, err, "unexpected error creating temp dir")
	return dir, func() { os.RemoveAll(dir) }
}

func TestReadMissingCheckpointReturnsNoError(t *testing.T) {
	dir, cleanup := newTestDir(t)
	defer cleanup()

	store := NewStore(path.Join(dir, "nested", "checkpoint"))
	blob, err := store.Read()
	assert.Nil(t, err, "reading a missing checkpoint should not error")
	assert.Nil(t, blob, "reading a missing checkpoint should return no bytes")
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	dir, cleanup := newTestDir(t)
	defer cleanup()

	store := NewStore(path.Join(dir, "nested", "checkpoint"))
	payload := []byte("some serialized undo requests")

	assert.Nil(t, store.Write(payload), "unexpected error writing checkpoint")
	blob, err := store.Read()
	assert.Nil(t, err, "unexpected error reading checkpoint")
	assert.Equal(t, payload, blob)
}

func TestWriteOverwritesPreviousContents(t *testing.T) {
	dir, cleanup := newTestDir(t)
	defer cleanup()

	store := NewStore(path.Join(dir, "checkpoint"))
	assert.Nil(t, store.Write([]byte("first")))
	assert.Nil(t, store.Write([]byte("second")))

	blob, err := store.Read()
	assert.Nil(t, err)
	assert.Equal(t, []byte("second"), blob)

	// the temporary file used to make the write atomic should not survive.
	_, err = os.Stat(path.Join(dir, "checkpoint.tmp"))
	assert.True(t, os.IsNotExist(err), "temporary checkpoint file should have been renamed away")
}
