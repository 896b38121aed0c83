package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubTerminal(t *testing.T, terminal bool, pw func(int) ([]byte, error)) {
	t.Helper()
	oldTerm, oldRead := isTerminal, readPassword
	isTerminal = func(int) bool { return terminal }
	readPassword = pw
	t.Cleanup(func() {
		isTerminal, readPassword = oldTerm, oldRead
	})
}

func TestPrompterText(t *testing.T) {
	var out bytes.Buffer
	p := &prompter{in: bufio.NewReader(strings.NewReader("  alice \nlast")), out: &out}

	got, err := p.Text("Username")
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
	assert.Equal(t, "Username: ", out.String())

	got, err = p.Text("Next")
	require.NoError(t, err)
	assert.Equal(t, "last", got, "final line without newline")

	_, err = p.Text("Gone")
	assert.Error(t, err)
}

func TestPrompterPassword_Terminal(t *testing.T) {
	stubTerminal(t, true, func(int) ([]byte, error) { return []byte("s3cret"), nil })
	var out bytes.Buffer
	p := &prompter{in: bufio.NewReader(strings.NewReader("not used\n")), out: &out}

	got, err := p.Password("Password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
	assert.Equal(t, "Password: \n", out.String())
}

func TestPrompterPassword_TerminalError(t *testing.T) {
	stubTerminal(t, true, func(int) ([]byte, error) { return nil, errors.New("boom") })
	p := &prompter{in: bufio.NewReader(strings.NewReader("")), out: &bytes.Buffer{}}

	_, err := p.Password("Password")
	assert.EqualError(t, err, "boom")
}

func TestPrompterPassword_Piped(t *testing.T) {
	stubTerminal(t, false, func(int) ([]byte, error) {
		t.Fatal("terminal must not be read when stdin is piped")
		return nil, nil
	})
	p := &prompter{in: bufio.NewReader(strings.NewReader("pw\n")), out: &bytes.Buffer{}}

	got, err := p.Password("Password")
	require.NoError(t, err)
	assert.Equal(t, "pw", got)
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"go", "ai", "cli"}, splitTags(" go, ai ,,cli "))
	assert.Nil(t, splitTags(" , "))
}
