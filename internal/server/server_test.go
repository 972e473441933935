package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobias/adscout/internal/pipeline"
	"github.com/tobias/adscout/internal/types"
)

// fakeDiscoverer runs a scripted discovery, emitting progress first.
type fakeDiscoverer struct {
	report *types.DiscoveryReport
	err    error
	stages []string
	// block, when set, holds the run open until closed.
	block chan struct{}
}

func (f *fakeDiscoverer) Discover(ctx context.Context, opts pipeline.Options) (*types.DiscoveryReport, error) {
	for _, stage := range f.stages {
		if opts.OnProgress != nil {
			opts.OnProgress(pipeline.ProgressEvent{Stage: stage, Message: stage})
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
		}
	}
	return f.report, f.err
}

func newTestServer(t *testing.T, d Discoverer) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Config{Pipeline: d})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func postDiscover(t *testing.T, ts *httptest.Server, body string) Job {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/discover", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var job Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	return job
}

func getJob(t *testing.T, ts *httptest.Server, id string) (Job, int) {
	t.Helper()
	resp, err := http.Get(ts.URL + "/api/jobs/" + id)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var job Job
	_ = json.NewDecoder(resp.Body).Decode(&job)
	return job, resp.StatusCode
}

func waitForStatus(t *testing.T, ts *httptest.Server, id string, want JobStatus) Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, code := getJob(t, ts, id)
		if code == http.StatusOK && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, want)
	return Job{}
}

func TestDiscoverEndpoint_CompletesJob(t *testing.T) {
	report := &types.DiscoveryReport{Success: true, Keywords: []string{"kollagen"}}
	_, ts := newTestServer(t, &fakeDiscoverer{report: report})

	job := postDiscover(t, ts, `{"brand":"Glow25"}`)
	assert.Equal(t, JobRunning, job.Status)
	assert.Equal(t, "Glow25", job.Brand)

	done := waitForStatus(t, ts, job.ID.String(), JobCompleted)
	require.NotNil(t, done.Report)
	assert.True(t, done.Report.Success)
	assert.Equal(t, []string{"kollagen"}, done.Report.Keywords)
	assert.False(t, done.CompletedAt.IsZero())
}

func TestDiscoverEndpoint_FailedJob(t *testing.T) {
	_, ts := newTestServer(t, &fakeDiscoverer{err: fmt.Errorf("source unavailable")})

	job := postDiscover(t, ts, `{"brand":"Glow25"}`)
	failed := waitForStatus(t, ts, job.ID.String(), JobFailed)
	assert.Contains(t, failed.Error, "source unavailable")
}

func TestDiscoverEndpoint_RejectsBadInput(t *testing.T) {
	_, ts := newTestServer(t, &fakeDiscoverer{})

	resp, err := http.Post(ts.URL+"/api/discover", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/discover", "application/json", strings.NewReader(`{"brand":""}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJobStatus_NotFound(t *testing.T) {
	_, ts := newTestServer(t, &fakeDiscoverer{})

	_, code := getJob(t, ts, "00000000-0000-0000-0000-000000000001")
	assert.Equal(t, http.StatusNotFound, code)

	resp, err := http.Get(ts.URL + "/api/jobs/not-a-uuid")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJobEvents_StreamsProgressAndComplete(t *testing.T) {
	block := make(chan struct{})
	d := &fakeDiscoverer{
		report: &types.DiscoveryReport{Success: true},
		stages: []string{pipeline.StageBrandSearch, pipeline.StageReport},
		block:  block,
	}
	s, ts := newTestServer(t, d)

	// Subscribe before the job exists is a 404.
	resp, err := http.Get(ts.URL + "/api/jobs/" + "00000000-0000-0000-0000-000000000002" + "/events")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	job := s.registry.Create("Glow25")
	events, cancelSub, live := s.registry.Subscribe(job.ID)
	require.True(t, live)
	defer cancelSub()

	s.registry.Publish(job.ID, pipeline.ProgressEvent{Stage: "brand_search"})
	ev := <-events
	assert.Equal(t, "brand_search", ev.Stage)

	s.registry.Complete(job.ID, d.report)
	_, open := <-events
	assert.False(t, open)

	close(block)
}

func TestJobEvents_FinishedJobGetsTerminalEvent(t *testing.T) {
	report := &types.DiscoveryReport{Success: true}
	_, ts := newTestServer(t, &fakeDiscoverer{report: report})

	job := postDiscover(t, ts, `{"brand":"Glow25"}`)
	waitForStatus(t, ts, job.ID.String(), JobCompleted)

	resp, err := http.Get(ts.URL + "/api/jobs/" + job.ID.String() + "/events")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "event: complete")
	assert.Contains(t, joined, `"status":"completed"`)
}

func TestReport_NotFoundWithoutStore(t *testing.T) {
	_, ts := newTestServer(t, &fakeDiscoverer{})

	resp, err := http.Get(ts.URL + "/api/reports/00000000-0000-0000-0000-000000000003")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/reports/not-a-uuid")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, &fakeDiscoverer{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegistry_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	job := r.Create("Glow25")
	_, cancelSub, live := r.Subscribe(job.ID)
	require.True(t, live)
	defer cancelSub()

	// Fill well past the subscriber buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			r.Publish(job.ID, pipeline.ProgressEvent{Stage: "x"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
