package db

import (
	"errors"
	"net/http"
	"testing"
)

func TestHealthEnvelope_Healthy(t *testing.T) {
	stats := &PoolStats{TotalConns: 5, IdleConns: 3, MaxConns: 20, Healthy: true}

	status, body := healthEnvelope(stats, nil)

	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if body["success"] != true {
		t.Error("expected success=true")
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v", body["status"])
	}
	if _, ok := body["error"]; ok {
		t.Error("healthy envelope must not carry an error field")
	}
}

func TestHealthEnvelope_PingFailure(t *testing.T) {
	stats := &PoolStats{TotalConns: 5, Healthy: true}

	status, body := healthEnvelope(stats, errors.New("connection refused"))

	if status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", status)
	}
	if body["success"] != false {
		t.Error("expected success=false")
	}
	if body["error"] != "connection refused" {
		t.Errorf("error field = %v", body["error"])
	}
	if stats.Healthy {
		t.Error("ping failure must mark the pool unhealthy")
	}
}
