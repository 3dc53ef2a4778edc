package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/novel-chapter-translator/internal/config"
)

type fakeScheduler struct {
	scheduled bool
	err       error
}

func (f *fakeScheduler) Schedule(context.Context) error {
	f.scheduled = true
	return f.err
}

type fakeCron struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

func (f *fakeCron) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
}

func (f *fakeCron) Stop() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

type fakeHTTPServer struct {
	mu       sync.Mutex
	addr     string
	shutdown bool
	serveErr error
	release  chan struct{}
}

func newFakeHTTPServer(serveErr error) *fakeHTTPServer {
	return &fakeHTTPServer{serveErr: serveErr, release: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe(addr string) error {
	f.mu.Lock()
	f.addr = addr
	f.mu.Unlock()
	if f.serveErr != nil {
		return f.serveErr
	}
	<-f.release
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.shutdown {
		f.shutdown = true
		close(f.release)
	}
	return nil
}

func testRunConfig() *config.Config {
	return &config.Config{HTTP: config.HTTPConfig{Addr: ":0"}}
}

func TestRunWithComponentsShutsDownOnContextCancel(t *testing.T) {
	sched := &fakeScheduler{}
	cronRunner := &fakeCron{}
	httpSrv := newFakeHTTPServer(nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- runWithComponents(ctx, testRunConfig(), sched, cronRunner, httpSrv)
	}()

	// Give the run loop a moment to wire everything up, then signal shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after context cancel")
	}

	assert.True(t, sched.scheduled)
	assert.True(t, cronRunner.started)
	assert.True(t, cronRunner.stopped)
	assert.True(t, httpSrv.shutdown)
	assert.Equal(t, ":0", httpSrv.addr)
}

func TestRunWithComponentsReturnsServeError(t *testing.T) {
	sched := &fakeScheduler{}
	cronRunner := &fakeCron{}
	httpSrv := newFakeHTTPServer(fmt.Errorf("bind failed"))

	err := runWithComponents(context.Background(), testRunConfig(), sched, cronRunner, httpSrv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind failed")
}

func TestRunWithComponentsReturnsScheduleError(t *testing.T) {
	sched := &fakeScheduler{err: fmt.Errorf("bad cron expression")}
	cronRunner := &fakeCron{}
	httpSrv := newFakeHTTPServer(nil)

	err := runWithComponents(context.Background(), testRunConfig(), sched, cronRunner, httpSrv)
	require.Error(t, err)
	assert.False(t, cronRunner.started)
}
