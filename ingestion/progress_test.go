package ingestion

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4, 2)

	tracker.Start()
	tracker.Record(true)
	assert.Equal(t, "", buf.String(), "should not print under interval")

	tracker.Record(false)
	assert.Contains(t, buf.String(), "2/4 files (50.0%), 1 failed")

	tracker.Record(true)
	tracker.Record(true)
	tracker.Record(true) // beyond total
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "4/4 files (100.0%), 1 failed")
	assert.Contains(t, output, "files/s")
	assert.Contains(t, output, "\n")
	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
}

func TestProgressTrackerNotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)

	tracker.Record(true)
	tracker.Finish()

	assert.Equal(t, "", buf.String())
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
}

func TestProgressTrackerZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0, 0)

	tracker.Start()
	tracker.Finish()

	assert.Contains(t, buf.String(), "0/0 files")
}
