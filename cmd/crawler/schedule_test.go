package main

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_SkipsOverlappingRuns(t *testing.T) {
	var runs atomic.Int32
	started := make(chan struct{}, 2)
	release := make(chan struct{})

	_, job, err := newScheduler("@every 1h", func() {
		runs.Add(1)
		started <- struct{}{}
		<-release
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		job.Run()
		close(done)
	}()
	<-started

	// A tick during the first run returns without running
	job.Run()
	assert.Equal(t, int32(1), runs.Load())

	close(release)
	<-done

	job.Run()
	assert.Equal(t, int32(2), runs.Load())
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, _, err := newScheduler("every day", func() {})
	assert.Error(t, err)
}
