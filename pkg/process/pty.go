package process

import (
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// PTYManager handles PTY-based process execution
type PTYManager struct {
	cmd      *exec.Cmd
	pty      *os.File
	mu       sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   zerolog.Logger
	resized  func()
}

// Ensure PTYManager implements PTY
var _ PTY = (*PTYManager)(nil)

// NewPTYManager creates a new PTY manager. onResize, if set, runs after the
// PTY follows a terminal size change.
func NewPTYManager(logger zerolog.Logger, onResize func()) *PTYManager {
	return &PTYManager{
		stopChan: make(chan struct{}),
		logger:   logger,
		resized:  onResize,
	}
}

// Start starts a process with PTY
func (p *PTYManager) Start(command string, args []string, env []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return errors.New("process already started")
	}

	p.cmd = exec.Command(command, args...)
	p.cmd.Env = env

	f, err := pty.Start(p.cmd)
	if err != nil {
		p.cmd = nil
		return errors.Wrap(err, "failed to start PTY")
	}
	p.pty = f

	if err := p.copyTerminalSize(); err != nil {
		// Not fatal: stdin is not always a terminal.
		p.logger.Debug().Err(err).Msg("failed to copy terminal size")
	}

	p.wg.Add(1)
	go p.monitorTerminalSize()

	return nil
}

// Wait waits for the process to complete
func (p *PTYManager) Wait() error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil {
		return errors.New("process not started")
	}

	err := cmd.Wait()

	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()

	return err
}

// ProcessState returns the process state
func (p *PTYManager) ProcessState() *os.ProcessState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return nil
	}
	return p.cmd.ProcessState
}

// Process returns the underlying process
func (p *PTYManager) Process() *os.Process {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return nil
	}
	return p.cmd.Process
}

// Close closes the PTY.
func (p *PTYManager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pty == nil {
		return nil
	}
	err := p.pty.Close()
	p.pty = nil
	return err
}

// copyTerminalSize copies the terminal size from stdin to the PTY
func (p *PTYManager) copyTerminalSize() error {
	size, err := pty.GetsizeFull(os.Stdin)
	if err != nil {
		return err
	}
	return pty.Setsize(p.pty, size)
}

// monitorTerminalSize monitors for terminal size changes
func (p *PTYManager) monitorTerminalSize() {
	defer p.wg.Done()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGWINCH)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			p.mu.Lock()
			var err error
			if p.pty != nil {
				err = p.copyTerminalSize()
			}
			p.mu.Unlock()
			if err != nil {
				p.logger.Debug().Err(err).Msg("failed to resize PTY")
				continue
			}
			if p.resized != nil {
				p.resized()
			}
		case <-p.stopChan:
			return
		}
	}
}

// CopyIO copies stdin to the PTY and the PTY to stdout, calling emit with
// EventInput or EventOutput for every chunk that passes through, and with
// EventClear when the output clears the screen. It returns
// when the PTY side is closed; the stdin copy is left to end on its own.
func (p *PTYManager) CopyIO(stdin io.Reader, stdout io.Writer, emit func(event string)) error {
	p.mu.Lock()
	if p.pty == nil {
		p.mu.Unlock()
		return errors.New("PTY not initialized")
	}
	ptyFile := p.pty
	p.mu.Unlock()

	if emit == nil {
		emit = func(string) {}
	}

	if stdin != nil {
		go func() {
			in := &activityReader{reader: stdin, event: EventInput, emit: emit}
			if _, err := io.Copy(ptyFile, in); err != nil {
				p.logger.Debug().Err(err).Msg("stdin copy ended")
			}
		}()
	}

	out := &activityReader{reader: ptyFile, event: EventOutput, emit: emit, screen: newScreenDetector()}
	if _, err := io.Copy(stdout, out); err != nil && !isClosedPTY(err) {
		return errors.Wrap(err, "stdout copy error")
	}
	return nil
}

// isClosedPTY reports the errors a PTY master returns once the child side is gone.
func isClosedPTY(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && pathErr.Err == syscall.EIO {
		return true
	}
	return errors.Is(err, os.ErrClosed)
}

// activityReader reports every non-empty read as one event.
type activityReader struct {
	reader io.Reader
	event  string
	emit   func(string)
	screen *screenDetector
}

func (r *activityReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.emit(r.event)
		if r.screen != nil && r.screen.Detect(p[:n]) {
			r.emit(EventClear)
		}
	}
	return n, err
}
