package input

import (
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Action is a logical viewer action, not a physical key
type Action int

const (
	ActionMoveForward Action = iota
	ActionMoveBackward
	ActionMoveLeft
	ActionMoveRight
	ActionMoveUp
	ActionMoveDown
	ActionFast
	ActionReleaseMouse
	ActionDumpMap
	ActionToggleWireframe
	ActionLightFromView
	ActionQuit
	ActionCount // sentinel for array sizing
)

// Manager maps glfw key events to actions and accumulates mouse motion between frames.
// Callbacks and the frame loop may run on different goroutines.
type Manager struct {
	mu sync.Mutex

	keyToActions map[glfw.Key][]Action

	current     [ActionCount]bool
	justPressed [ActionCount]bool

	haveCursor     bool
	lastX, lastY   float64
	lookDX, lookDY float64
}

// NewManager creates a manager with the default fly-camera bindings.
func NewManager() *Manager {
	m := &Manager{keyToActions: make(map[glfw.Key][]Action)}

	m.BindKey(glfw.KeyW, ActionMoveForward)
	m.BindKey(glfw.KeyUp, ActionMoveForward)
	m.BindKey(glfw.KeyS, ActionMoveBackward)
	m.BindKey(glfw.KeyDown, ActionMoveBackward)
	m.BindKey(glfw.KeyA, ActionMoveLeft)
	m.BindKey(glfw.KeyD, ActionMoveRight)
	m.BindKey(glfw.KeySpace, ActionMoveUp)
	m.BindKey(glfw.KeyLeftShift, ActionMoveDown)
	m.BindKey(glfw.KeyLeftControl, ActionFast)
	m.BindKey(glfw.KeyEscape, ActionReleaseMouse)
	m.BindKey(glfw.KeyM, ActionDumpMap)
	m.BindKey(glfw.KeyF, ActionToggleWireframe)
	m.BindKey(glfw.KeyL, ActionLightFromView)
	m.BindKey(glfw.KeyQ, ActionQuit)

	return m
}

// BindKey binds a physical key to an action. A key may drive several actions.
func (m *Manager) BindKey(key glfw.Key, action Action) {
	if action < 0 || action >= ActionCount {
		return
	}
	m.mu.Lock()
	m.keyToActions[key] = append(m.keyToActions[key], action)
	m.mu.Unlock()
}

// HandleKeyEvent updates action state from a glfw key event.
func (m *Manager) HandleKeyEvent(key glfw.Key, action glfw.Action) {
	pressed := action == glfw.Press || action == glfw.Repeat

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, act := range m.keyToActions[key] {
		if pressed && !m.current[act] {
			m.justPressed[act] = true
		}
		m.current[act] = pressed
	}
}

// HandleCursor accumulates cursor motion. The first sample after ResetCursor only
// records the position.
func (m *Manager) HandleCursor(x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.haveCursor {
		m.lastX, m.lastY = x, y
		m.haveCursor = true
		return
	}
	m.lookDX += x - m.lastX
	m.lookDY += m.lastY - y
	m.lastX, m.lastY = x, y
}

// ResetCursor forgets the last cursor position, e.g. after the cursor was recaptured.
func (m *Manager) ResetCursor() {
	m.mu.Lock()
	m.haveCursor = false
	m.lookDX, m.lookDY = 0, 0
	m.mu.Unlock()
}

// Install sets the window's key and cursor callbacks to feed m.
func (m *Manager) Install(window *glfw.Window) {
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		m.HandleKeyEvent(key, action)
	})
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		m.HandleCursor(xpos, ypos)
	})
}

// IsActive reports whether the action is held down.
func (m *Manager) IsActive(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current[action]
}

// JustPressed reports whether the action was pressed since the last PostUpdate.
func (m *Manager) JustPressed(action Action) bool {
	if action < 0 || action >= ActionCount {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.justPressed[action]
}

// Look returns the cursor motion since the last PostUpdate, y up positive.
func (m *Manager) Look() (dx, dy float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookDX, m.lookDY
}

// PostUpdate clears per-frame edges and motion. Call at the end of each frame.
func (m *Manager) PostUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range ActionCount {
		m.justPressed[i] = false
	}
	m.lookDX, m.lookDY = 0, 0
}
