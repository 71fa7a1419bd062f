//go:build !windows

package tray

import "testing"

func TestNewStoresDashboardURL(t *testing.T) {
	app := New("http://localhost:8080", []byte("icon"), func() {})
	if app.DashboardURL != "http://localhost:8080" {
		t.Fatalf("expected dashboard URL to be stored, got %q", app.DashboardURL)
	}
}

func TestRunDoesNotBlockOffWindows(t *testing.T) {
	app := New("http://localhost:8080", nil, nil)
	app.Run()
}
