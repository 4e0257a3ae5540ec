package core

import (
	"errors"
	"sync"
)

// ErrUnknownCommand is returned when dispatching an id nobody registered
var ErrUnknownCommand = errors.New("unknown command id")

// CommandHandler handles a command. It decodes its own arguments from
// data and advances it past them.
type CommandHandler func(data *[]byte) error

// Command is one registered command or response. Responses (device to
// host) have a nil handler.
type Command struct {
	ID      uint16
	Name    string
	Format  string // e.g. "target=%u"
	Handler CommandHandler
}

// CommandRegistry assigns ids in registration order
type CommandRegistry struct {
	mu       sync.RWMutex
	commands []*Command
	nameToID map[string]uint16
}

var globalRegistry = NewCommandRegistry()

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{nameToID: make(map[string]uint16)}
}

// RegisterCommand registers a command with the global registry
func RegisterCommand(name string, format string, handler CommandHandler) uint16 {
	return globalRegistry.Register(name, format, handler)
}

// RegisterResponse registers a response with the global registry
func RegisterResponse(name string, format string) uint16 {
	return globalRegistry.Register(name, format, nil)
}

// Register adds a command and returns its id. Registering a name twice
// returns the first id.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}
	id := uint16(len(r.commands))
	r.commands = append(r.commands, &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	})
	r.nameToID[name] = id
	return id
}

// GetCommand looks a command up by id
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.commands) {
		return nil, false
	}
	return r.commands[id], true
}

// GetCommandByName looks a command up by name
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Count returns the number of registered commands and responses
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch runs the handler registered for cmdID. Dispatching a response
// id is an error as well.
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.Handler == nil {
		return ErrUnknownCommand
	}
	return cmd.Handler(data)
}

// Describe returns one "name format" line per id, in id order
func (r *CommandRegistry) Describe() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := ""
	for _, cmd := range r.commands {
		s += itoa(int(cmd.ID)) + " " + cmd.Name
		if cmd.Format != "" {
			s += " " + cmd.Format
		}
		s += "\n"
	}
	return s
}

// Reset drops every registration
func (r *CommandRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
	r.nameToID = make(map[string]uint16)
}

// DispatchCommand dispatches through the global registry
func DispatchCommand(cmdID uint16, data *[]byte) error {
	return globalRegistry.Dispatch(cmdID, data)
}

// GetGlobalRegistry returns the global command registry
func GetGlobalRegistry() *CommandRegistry {
	return globalRegistry
}
