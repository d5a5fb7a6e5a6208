package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("overlay", "127.0.0.1:8051", "zynqmp")

	c.IncWorkflowStarted()
	c.AddUpload(100)
	c.AddUpload(-1)
	c.IncConversion()
	c.AddRemovals(2, 1)
	c.IncRemoteRejection()
	c.IncTransportError()
	c.IncLocalIOError()
	c.IncWorkflowFailed()
	c.IncWorkflowSucceeded()

	s := c.Snapshot()
	if s.WorkflowsStarted != 1 || s.WorkflowsFailed != 1 || s.WorkflowsSucceeded != 1 {
		t.Errorf("workflow counters = %+v", s)
	}
	if s.Uploads != 2 {
		t.Errorf("Uploads = %d, want 2", s.Uploads)
	}
	if s.UploadedBytes != 100 {
		t.Errorf("UploadedBytes = %d, want 100 (unknown sizes ignored)", s.UploadedBytes)
	}
	if s.Conversions != 1 {
		t.Errorf("Conversions = %d, want 1", s.Conversions)
	}
	if s.Removals != 2 || s.RemovalFailures != 1 {
		t.Errorf("Removals = %d, RemovalFailures = %d", s.Removals, s.RemovalFailures)
	}
	if s.RemoteRejections != 1 || s.TransportErrors != 1 || s.LocalIOErrors != 1 {
		t.Errorf("failure counters = %+v", s)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	s := NewCollector("register-accel", "fpga:8051", "zynq").Snapshot()
	if s.Command != "register-accel" || s.Target != "fpga:8051" || s.Platform != "zynq" {
		t.Errorf("dimensions = %+v", s)
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("load", "", "")
	c.AddUpload(1)
	s1 := c.Snapshot()
	c.AddUpload(1)
	if s1.Uploads != 1 {
		t.Errorf("earlier snapshot changed: Uploads = %d", s1.Uploads)
	}
	if c.Snapshot().Uploads != 2 {
		t.Error("collector should keep counting")
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.IncWorkflowStarted()
	c.IncWorkflowSucceeded()
	c.IncWorkflowFailed()
	c.AddUpload(10)
	c.IncConversion()
	c.AddRemovals(1, 1)
	c.IncRemoteRejection()
	c.IncTransportError()
	c.IncLocalIOError()

	if s := c.Snapshot(); s != (Snapshot{}) {
		t.Errorf("nil collector snapshot = %+v, want zero", s)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("bitdownload", "", "")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				c.AddUpload(2)
				c.AddRemovals(1, 0)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)
	if s.Uploads != want || s.UploadedBytes != 2*want || s.Removals != want {
		t.Errorf("Uploads=%d UploadedBytes=%d Removals=%d, want %d/%d/%d",
			s.Uploads, s.UploadedBytes, s.Removals, want, 2*want, want)
	}
}
