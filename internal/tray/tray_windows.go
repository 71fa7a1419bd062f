//go:build windows

// Package tray puts a system tray icon on Windows that opens the status
// dashboard and quits the process, mirroring the original tool's
// windows.go trayApp almost verbatim, generalised from one hardcoded
// web port to an arbitrary dashboard URL.
package tray

import (
	"os/exec"

	"github.com/getlantern/systray"

	"github.com/mzuther/lalikan/internal/logging"
)

// App drives the tray icon.
type App struct {
	DashboardURL string
	IconData     []byte
	onQuit       func()
}

// New builds a tray App pointed at dashboardURL. onQuit is called when
// the user picks "Quit" from the tray menu, before the process exits.
func New(dashboardURL string, iconData []byte, onQuit func()) *App {
	return &App{DashboardURL: dashboardURL, IconData: iconData, onQuit: onQuit}
}

// Run blocks, driving the tray icon's event loop.
func (a *App) Run() {
	systray.Run(a.onReady, a.onExit)
}

func (a *App) onReady() {
	systray.SetIcon(a.IconData)
	systray.SetTitle("lalikan")
	systray.SetTooltip("lalikan - click to open the dashboard")

	mOpen := systray.AddMenuItem("Open Dashboard", "Open the status dashboard in your browser")
	mQuit := systray.AddMenuItem("Quit", "Exit lalikan")

	go func() {
		for {
			select {
			case <-mOpen.ClickedCh:
				a.openDashboard()
			case <-mQuit.ClickedCh:
				if a.onQuit != nil {
					a.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

func (a *App) onExit() {}

func (a *App) openDashboard() {
	cmd := exec.Command("rundll32", "url.dll,FileProtocolHandler", a.DashboardURL)
	if err := cmd.Start(); err != nil {
		logging.Errorf("tray: failed to open dashboard: %v", err)
	}
}
