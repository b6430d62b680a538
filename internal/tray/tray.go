// Package tray provides the system tray menu for formcheck.
package tray

import (
	"fmt"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/formcheck/internal/exercise"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onExercise func(kind exercise.Kind)
	onSettings func()
	onQuit     func()
	enabled    bool
	kind       exercise.Kind
	status     string
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuStatus    *systray.MenuItem
	menuExercises map[exercise.Kind]*systray.MenuItem
}

// New creates a new Tray showing the given state.
func New(enabled bool, kind exercise.Kind) *Tray {
	return &Tray{
		enabled: enabled,
		kind:    kind,
		status:  "Last: none",
	}
}

// OnToggle sets the callback function to be called when tracking is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnExercise sets the callback function to be called when another exercise is picked.
func (t *Tray) OnExercise(fn func(kind exercise.Kind)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExercise = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("formcheck")
	systray.SetTooltip("formcheck squat and deadlift coach")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume tracking")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(t.status, "Latest repetition feedback")
	t.menuStatus.Disable()
	systray.AddSeparator()

	menuExercise := systray.AddMenuItem("Exercise", "Exercise tracked by the camera")
	t.menuExercises = make(map[exercise.Kind]*systray.MenuItem)
	for _, kind := range exercise.Kinds() {
		t.menuExercises[kind] = menuExercise.AddSubMenuItem(title(kind), "Track "+string(kind))
	}
	t.checkExercise()
	t.mu.Unlock()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit formcheck")

	for kind, item := range t.menuExercises {
		go func(kind exercise.Kind, item *systray.MenuItem) {
			for range item.ClickedCh {
				t.handleExercise(kind)
			}
		}(kind, item)
	}

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleExercise handles a click on one of the exercise items.
func (t *Tray) handleExercise(kind exercise.Kind) {
	t.mu.Lock()
	changed := t.kind != kind
	t.kind = kind
	t.checkExercise()
	callback := t.onExercise
	t.mu.Unlock()

	if changed && callback != nil {
		callback(kind)
	}
}

// checkExercise ticks the current exercise. Callers hold t.mu.
func (t *Tray) checkExercise() {
	for k, item := range t.menuExercises {
		if k == t.kind {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

func title(kind exercise.Kind) string {
	if kind == "" {
		return "Idle"
	}
	return strings.ToUpper(string(kind[:1])) + string(kind[1:])
}

// Status formats the status line for a tracker result.
func Status(res exercise.Result) string {
	if res.Feedback == "" {
		return fmt.Sprintf("%s: %d reps", title(res.Exercise), res.Reps)
	}
	return fmt.Sprintf("%s: %d reps · %s", title(res.Exercise), res.Reps, res.Feedback)
}

// SetResult shows the latest result of the live session.
func (t *Tray) SetResult(res exercise.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = Status(res)
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(t.status)
	}
}

// SetEnabled updates the toggle without calling OnToggle.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetExercise updates the exercise selection without calling OnExercise.
func (t *Tray) SetExercise(kind exercise.Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.kind = kind
	t.checkExercise()
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Exercise returns the selected exercise.
func (t *Tray) Exercise() exercise.Kind {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.kind
}

// StatusLine returns the status line currently shown.
func (t *Tray) StatusLine() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
