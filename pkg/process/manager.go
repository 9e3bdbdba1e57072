// Package process runs a command under a PTY and reports terminal traffic as
// interaction events.
package process

import (
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Veraticus/not-idle/pkg/events"
	"github.com/Veraticus/not-idle/pkg/interfaces"
)

// Events emitted by a Manager.
const (
	EventInput  = "input"
	EventOutput = "output"
	EventResize = "resize"
	EventClear  = "clear"
)

// forwardedSignals are relayed to the command, which decides how to exit.
// Nothing else in the wrapper handles them.
var forwardedSignals = []os.Signal{
	syscall.SIGTERM,
	syscall.SIGINT,
	syscall.SIGHUP,
	syscall.SIGQUIT,
	syscall.SIGUSR1,
	syscall.SIGUSR2,
}

// WrappedEnv marks the environment of a wrapped command.
const WrappedEnv = "NOT_IDLE_WRAPPED"

// Manager runs one wrapped command. It is an interfaces.EventSource: handlers
// subscribed to EventInput, EventOutput, EventResize or EventClear are called
// as the user and the command exchange data.
type Manager struct {
	*events.Emitter

	ptyManager PTY
	logger     zerolog.Logger
	stdin      io.Reader
	stdout     io.Writer

	mu       sync.Mutex
	started  bool
	exitCode int
	sigChan  chan os.Signal
	done     chan struct{}
	copyDone chan struct{}
}

// Ensure Manager implements EventSource
var _ interfaces.EventSource = (*Manager)(nil)

// NewManager creates a manager copying stdin and stdout through the PTY.
func NewManager(stdin io.Reader, stdout io.Writer, logger zerolog.Logger) *Manager {
	m := &Manager{
		Emitter:  events.NewEmitter(),
		logger:   logger,
		stdin:    stdin,
		stdout:   stdout,
		done:     make(chan struct{}),
		copyDone: make(chan struct{}),
	}
	m.ptyManager = NewPTYManager(logger, func() { m.Emit(EventResize) })
	return m
}

// Start starts the command
func (m *Manager) Start(command string, args []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if os.Getenv(WrappedEnv) == "1" {
		return errors.New("already wrapped by not-idle")
	}
	env := append(os.Environ(), WrappedEnv+"=1")

	if err := m.ptyManager.Start(command, args, env); err != nil {
		return errors.Wrapf(err, "failed to start %s", command)
	}
	m.started = true

	go func() {
		defer close(m.copyDone)
		if err := m.ptyManager.CopyIO(m.stdin, m.stdout, m.Emit); err != nil {
			m.logger.Warn().Err(err).Msg("I/O error")
		}
	}()

	m.setupSignalForwarding()
	return nil
}

// Wait waits for the command to exit and for its output to drain.
func (m *Manager) Wait() error {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if !started {
		return errors.New("process not started")
	}

	err := m.ptyManager.Wait()

	// Output still buffered in the PTY is delivered before the copy ends.
	<-m.copyDone
	_ = m.ptyManager.Close()

	m.mu.Lock()
	if state := m.ptyManager.ProcessState(); state != nil {
		m.exitCode = state.ExitCode()
	}
	m.mu.Unlock()

	close(m.done)
	m.cleanupSignals()

	return err
}

// ExitCode returns the exit code of the command
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitCode
}

// setupSignalForwarding sets up signal forwarding to the child process
func (m *Manager) setupSignalForwarding() {
	m.sigChan = make(chan os.Signal, 1)
	signal.Notify(m.sigChan, forwardedSignals...)

	go m.forwardSignals(m.sigChan)
}

// forwardSignals forwards signals to the child process
func (m *Manager) forwardSignals(sigChan <-chan os.Signal) {
	for {
		select {
		case sig := <-sigChan:
			if proc := m.ptyManager.Process(); proc != nil {
				if err := proc.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
					m.logger.Warn().Err(err).Str("signal", sig.String()).Msg("signal forward error")
				}
			}
		case <-m.done:
			return
		}
	}
}

// cleanupSignals stops signal forwarding
func (m *Manager) cleanupSignals() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sigChan != nil {
		signal.Stop(m.sigChan)
		m.sigChan = nil
	}
}

// Stop asks the command to terminate, killing it if the signal fails.
func (m *Manager) Stop() error {
	proc := m.ptyManager.Process()
	if proc == nil {
		return nil
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return proc.Kill()
	}
	return nil
}
