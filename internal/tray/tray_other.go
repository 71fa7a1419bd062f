//go:build !windows

package tray

import "github.com/mzuther/lalikan/internal/logging"

// App is a no-op stand-in on platforms other than Windows, where the
// tray icon is not supported — the same split the original tool made
// between windows.go and windows_other.go.
type App struct {
	DashboardURL string
	IconData     []byte
}

func New(dashboardURL string, iconData []byte, onQuit func()) *App {
	return &App{DashboardURL: dashboardURL, IconData: iconData}
}

func (a *App) Run() {
	logging.Infof("system tray is only supported on Windows")
}
