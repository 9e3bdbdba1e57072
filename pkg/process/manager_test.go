package process

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPTY is a scripted PTY: CopyIO replays events through emit.
type mockPTY struct {
	startErr     error
	waitErr      error
	events       []string
	started      bool
	closed       bool
	processState *os.ProcessState
}

func (m *mockPTY) Start(command string, args []string, env []string) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started = true
	return nil
}

func (m *mockPTY) Wait() error                    { return m.waitErr }
func (m *mockPTY) ProcessState() *os.ProcessState { return m.processState }
func (m *mockPTY) Process() *os.Process           { return nil }
func (m *mockPTY) Close() error                   { m.closed = true; return nil }

func (m *mockPTY) CopyIO(stdin io.Reader, stdout io.Writer, emit func(string)) error {
	for _, e := range m.events {
		emit(e)
	}
	return nil
}

// recorder counts events per name.
type recorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecorder() *recorder { return &recorder{counts: make(map[string]int)} }

func (r *recorder) HandleEvent(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[event]++
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[event]
}

func newTestManager(p *mockPTY) *Manager {
	m := NewManager(nil, io.Discard, zerolog.Nop())
	m.ptyManager = p
	return m
}

func TestManager_EmitsCopiedEvents(t *testing.T) {
	t.Setenv(WrappedEnv, "")

	p := &mockPTY{events: []string{EventInput, EventOutput, EventOutput}}
	m := newTestManager(p)

	rec := newRecorder()
	require.NoError(t, m.Subscribe(EventInput, rec))
	require.NoError(t, m.Subscribe(EventOutput, rec))

	require.NoError(t, m.Start("cmd", nil))
	require.NoError(t, m.Wait())

	assert.True(t, p.started)
	assert.True(t, p.closed)
	assert.Equal(t, 1, rec.count(EventInput))
	assert.Equal(t, 2, rec.count(EventOutput))
	assert.Equal(t, 0, m.ExitCode())
}

func TestManager_UnsubscribedHandlerSeesNothing(t *testing.T) {
	t.Setenv(WrappedEnv, "")

	p := &mockPTY{events: []string{EventOutput}}
	m := newTestManager(p)

	rec := newRecorder()
	require.NoError(t, m.Subscribe(EventOutput, rec))
	require.NoError(t, m.Unsubscribe(EventOutput, rec))

	require.NoError(t, m.Start("cmd", nil))
	require.NoError(t, m.Wait())
	assert.Equal(t, 0, rec.count(EventOutput))
}

func TestManager_StartError(t *testing.T) {
	t.Setenv(WrappedEnv, "")

	cause := errors.New("no such file")
	m := newTestManager(&mockPTY{startErr: cause})

	err := m.Start("missing", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to start missing")
}

func TestManager_RefusesNestedWrap(t *testing.T) {
	t.Setenv(WrappedEnv, "1")

	p := &mockPTY{}
	m := newTestManager(p)

	require.Error(t, m.Start("cmd", nil))
	assert.False(t, p.started)
}

func TestManager_WaitErrorReturned(t *testing.T) {
	t.Setenv(WrappedEnv, "")

	cause := errors.New("wait failed")
	m := newTestManager(&mockPTY{waitErr: cause})

	require.NoError(t, m.Start("cmd", nil))
	assert.ErrorIs(t, m.Wait(), cause)
}

func TestManager_StopWithoutProcess(t *testing.T) {
	m := newTestManager(&mockPTY{})
	assert.NoError(t, m.Stop())
}

func TestActivityReader(t *testing.T) {
	var got []string
	r := &activityReader{
		reader: bytes.NewBufferString("hello"),
		event:  EventInput,
		emit:   func(e string) { got = append(got, e) },
	}

	buf := make([]byte, 2)
	for {
		_, err := r.Read(buf)
		if err != nil {
			break
		}
	}

	// "he", "ll", "o" then EOF with no data.
	assert.Equal(t, []string{EventInput, EventInput, EventInput}, got)
}

func TestManager_WaitBeforeStart(t *testing.T) {
	m := newTestManager(&mockPTY{})
	assert.Error(t, m.Wait())
}

func TestForwardedSignals(t *testing.T) {
	assert.Contains(t, forwardedSignals, os.Signal(syscall.SIGTERM))
	assert.Contains(t, forwardedSignals, os.Signal(syscall.SIGINT))
}

// SIGTERM sent to the wrapper reaches the command once, through forwarding,
// and the command's own exit code is kept.
func TestManager_ForwardsTermToCommand(t *testing.T) {
	skipWithoutPTY(t)
	t.Setenv(WrappedEnv, "")

	m := NewManager(nil, io.Discard, zerolog.Nop())
	rec := newRecorder()
	require.NoError(t, m.Subscribe(EventOutput, rec))

	script := `n=0; trap 'n=$((n+1))' TERM; echo ready; sleep 1; wait; exit $((40+n))`
	require.NoError(t, m.Start("sh", []string{"-c", script}))
	require.Eventually(t, func() bool { return rec.count(EventOutput) > 0 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	_ = m.Wait()
	assert.Equal(t, 41, m.ExitCode())
}
