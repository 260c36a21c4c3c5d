package credential

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"syscall"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benaskins/regcred/internal/keychain"
)

const testID = "com.regcred.test"

// fakeTerminal records the echo lifecycle of one password read.
type fakeTerminal struct {
	disableErr error
	disabled   int
	resets     int
	events     []string
}

func (f *fakeTerminal) DisableEcho() error {
	f.disabled++
	f.events = append(f.events, "disable")
	return f.disableErr
}

func (f *fakeTerminal) TryReset() {
	f.resets++
	f.events = append(f.events, "reset")
}

func (f *fakeTerminal) current() (Terminal, error) {
	return f, nil
}

// recordingStore captures arguments and can fail with a store-specific error.
type recordingStore struct {
	err          error
	saved        []string
	trustedPaths [][]string
	deleted      []string
}

// lockedError stands in for a store-native error type.
type lockedError struct{ name string }

func (e *lockedError) Error() string { return e.name + " is locked" }

func (r *recordingStore) Get(id, host string) (*keychain.Entry, error) {
	return nil, r.err
}

func (r *recordingStore) Save(id, host, user string, secret []byte, trustedPaths []string) error {
	r.saved = append(r.saved, id+"/"+host+"/"+user+"/"+string(secret))
	r.trustedPaths = append(r.trustedPaths, trustedPaths)
	return r.err
}

func (r *recordingStore) Delete(id, host string) error {
	r.deleted = append(r.deleted, id+"/"+host)
	return r.err
}

func (r *recordingStore) List(id string) ([]string, error) {
	return nil, r.err
}

func newTestHelper(store keychain.Store, input string) (*Helper, *fakeTerminal, *bytes.Buffer) {
	term := &fakeTerminal{}
	out := &bytes.Buffer{}
	h := New(testID, store,
		WithInput(strings.NewReader(input)),
		WithOutput(out),
		WithTerminal(term.current),
	)
	return h, term, out
}

func TestLookupWithoutSaveIsKeyNotFound(t *testing.T) {
	h, _, _ := newTestHelper(keychain.NewMemoryStore(), "")

	for _, domain := range []string{"example.com", "ghcr.io", "localhost:5000", ""} {
		auth, err := h.Lookup(domain)
		assert.ErrorIs(t, err, ErrKeyNotFound, domain)
		assert.Nil(t, auth, domain)
	}
}

func TestSaveThenLookupRoundTrips(t *testing.T) {
	cases := []struct {
		domain, user, pass string
	}{
		{"example.com", "alice", "s3cr3t"},
		{"ghcr.io", "bob", ""},
		{"localhost:5000", "", "pässwörd with spaces"},
		{"registry.example.com", "ci@example.com", "tok:en/with=chars"},
	}

	h, _, _ := newTestHelper(keychain.NewMemoryStore(), "")
	for _, tc := range cases {
		require.NoError(t, h.Save(tc.domain, tc.user, tc.pass))

		auth, err := h.Lookup(tc.domain)
		require.NoError(t, err)

		basic, ok := auth.(*BasicAuthentication)
		require.True(t, ok, "expected *BasicAuthentication, got %T", auth)
		assert.Equal(t, tc.user, basic.Username())
		assert.Equal(t, tc.pass, basic.Password())
	}
}

func TestLookupObservesExternalChanges(t *testing.T) {
	store := keychain.NewMemoryStore()
	h, _, _ := newTestHelper(store, "")

	require.NoError(t, h.Save("example.com", "alice", "first"))

	// Another process updates the entry behind the helper's back.
	require.NoError(t, store.Save(testID, "example.com", "alice", []byte("second"), nil))

	auth, err := h.Lookup("example.com")
	require.NoError(t, err)
	assert.Equal(t, "second", auth.(*BasicAuthentication).Password())

	require.NoError(t, store.Delete(testID, "example.com"))
	_, err = h.Lookup("example.com")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestHelpersWithDifferentIDsAreIsolated(t *testing.T) {
	store := keychain.NewMemoryStore()
	a := New("com.one", store)
	b := New("com.two", store)

	require.NoError(t, a.Save("example.com", "alice", "one"))

	_, err := b.Lookup("example.com")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSaveThenDeleteThenLookupIsKeyNotFound(t *testing.T) {
	h, _, _ := newTestHelper(keychain.NewMemoryStore(), "")

	require.NoError(t, h.Save("example.com", "alice", "s3cr3t"))
	require.NoError(t, h.Delete("example.com"))

	_, err := h.Lookup("example.com")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSaveWithoutPathsMatchesSaveWithNone(t *testing.T) {
	store := &recordingStore{}
	h, _, _ := newTestHelper(store, "")

	require.NoError(t, h.Save("example.com", "alice", "s3cr3t"))
	var none []string
	require.NoError(t, h.Save("example.com", "alice", "s3cr3t", none...))

	require.Len(t, store.saved, 2)
	assert.Equal(t, store.saved[0], store.saved[1])
	assert.Nil(t, store.trustedPaths[0])
	assert.Nil(t, store.trustedPaths[1])
}

func TestSavePassesTrustedPaths(t *testing.T) {
	store := keychain.NewMemoryStore()
	h, _, _ := newTestHelper(store, "")

	paths := []string{"/usr/local/bin/docker", "/Applications/Docker.app"}
	require.NoError(t, h.Save("example.com", "alice", "s3cr3t", paths...))

	got, ok := store.TrustedPaths(testID, "example.com")
	require.True(t, ok)
	assert.Equal(t, paths, got)
}

func TestLookupStoreFailureIsQueryError(t *testing.T) {
	storeErr := &lockedError{name: "login.keychain"}
	h, _, _ := newTestHelper(&recordingStore{err: storeErr}, "")

	_, err := h.Lookup("example.com")

	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.NotEmpty(t, qe.Message)
	assert.Contains(t, qe.Message, "login.keychain is locked")
	assert.NotErrorIs(t, err, ErrKeyNotFound)

	// The store's own error type does not leak through lookup.
	var le *lockedError
	assert.False(t, errors.As(err, &le))
}

func TestLookupWrappedNotFoundIsKeyNotFound(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), keychain.ErrNotFound)
	h, _, _ := newTestHelper(&recordingStore{err: wrapped}, "")

	_, err := h.Lookup("example.com")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

// Lookup translates store errors; Save and Delete deliberately do not.
func TestSaveAndDeleteSurfaceStoreErrorsUnmodified(t *testing.T) {
	storeErr := &lockedError{name: "login.keychain"}
	store := &recordingStore{err: storeErr}
	h, _, _ := newTestHelper(store, "")

	err := h.Save("example.com", "alice", "s3cr3t")
	assert.Same(t, storeErr, err)

	err = h.Delete("example.com")
	assert.Same(t, storeErr, err)

	var qe *QueryError
	assert.False(t, errors.As(err, &qe))
}

func TestDeleteMissingEntryUsesStoreSemantics(t *testing.T) {
	h, _, _ := newTestHelper(keychain.NewMemoryStore(), "")

	err := h.Delete("never-saved.example.com")
	assert.ErrorIs(t, err, keychain.ErrNotFound)
	assert.NotErrorIs(t, err, ErrKeyNotFound)
}

func TestCredentialPrompt(t *testing.T) {
	h, term, out := newTestHelper(keychain.NewMemoryStore(), "alice\ns3cr3t\n")

	auth, err := h.CredentialPrompt("example.com")
	require.NoError(t, err)

	basic := auth.(*BasicAuthentication)
	assert.Equal(t, "alice", basic.Username())
	assert.Equal(t, "s3cr3t", basic.Password())

	assert.Equal(t, []string{"disable", "reset"}, term.events)
	assert.Equal(t, "Username for example.com: Password: \n", out.String())
}

func TestCredentialPromptDoesNotPersist(t *testing.T) {
	store := keychain.NewMemoryStore()
	h, _, _ := newTestHelper(store, "alice\ns3cr3t\n")

	_, err := h.CredentialPrompt("example.com")
	require.NoError(t, err)

	_, err = h.Lookup("example.com")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestPromptLineEndings(t *testing.T) {
	h, _, _ := newTestHelper(keychain.NewMemoryStore(), "alice\r\ns3cr3t")

	auth, err := h.CredentialPrompt("example.com")
	require.NoError(t, err)

	basic := auth.(*BasicAuthentication)
	assert.Equal(t, "alice", basic.Username())
	assert.Equal(t, "s3cr3t", basic.Password())
}

func TestUserPromptEOF(t *testing.T) {
	h, _, out := newTestHelper(keychain.NewMemoryStore(), "")

	_, err := h.UserPrompt("example.com")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "Username for example.com: ", out.String())
}

func TestPasswordPromptEOFRestoresEcho(t *testing.T) {
	h, term, _ := newTestHelper(keychain.NewMemoryStore(), "")

	_, err := h.PasswordPrompt()
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 1, term.disabled)
	assert.Equal(t, 1, term.resets)
	assert.Equal(t, []string{"disable", "reset"}, term.events)
}

func TestPasswordPromptReadErrorRestoresEcho(t *testing.T) {
	term := &fakeTerminal{}
	h := New(testID, keychain.NewMemoryStore(),
		WithInput(iotest.ErrReader(errors.New("device gone"))),
		WithOutput(&bytes.Buffer{}),
		WithTerminal(term.current),
	)

	_, err := h.PasswordPrompt()
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 1, term.resets)
}

func TestPasswordPromptDisableEchoFailure(t *testing.T) {
	disableErr := errors.New("tcsetattr: operation not permitted")
	term := &fakeTerminal{disableErr: disableErr}
	h := New(testID, keychain.NewMemoryStore(),
		WithInput(strings.NewReader("s3cr3t\n")),
		WithOutput(&bytes.Buffer{}),
		WithTerminal(term.current),
	)

	_, err := h.PasswordPrompt()
	assert.ErrorIs(t, err, disableErr)
	assert.Equal(t, 1, term.resets)
}

func TestNoTerminalFailsBeforeReading(t *testing.T) {
	noTTY := errors.New("open /dev/tty: device not configured")
	input := strings.NewReader("s3cr3t\n")
	h := New(testID, keychain.NewMemoryStore(),
		WithInput(input),
		WithOutput(&bytes.Buffer{}),
		WithTerminal(func() (Terminal, error) { return nil, noTTY }),
	)

	_, err := h.PasswordPrompt()
	assert.Same(t, noTTY, err)

	// Nothing was consumed: the password line is still unread.
	line, rerr := h.readLine()
	require.NoError(t, rerr)
	assert.Equal(t, "s3cr3t", line)
}

func TestNoTerminalPropagatesThroughCredentialPrompt(t *testing.T) {
	noTTY := errors.New("open /dev/tty: device not configured")
	h := New(testID, keychain.NewMemoryStore(),
		WithInput(strings.NewReader("alice\ns3cr3t\n")),
		WithOutput(&bytes.Buffer{}),
		WithTerminal(func() (Terminal, error) { return nil, noTTY }),
	)

	auth, err := h.CredentialPrompt("example.com")
	assert.Nil(t, auth)
	assert.Same(t, noTTY, err)
}

func TestDefaultTerminalIsUnavailable(t *testing.T) {
	h := New(testID, keychain.NewMemoryStore(),
		WithInput(strings.NewReader("s3cr3t\n")),
		WithOutput(&bytes.Buffer{}),
	)

	_, err := h.PasswordPrompt()
	assert.ErrorIs(t, err, ErrNoTerminal)
}

func newInterruptibleHelper(t *testing.T) (*Helper, *fakeTerminal, *io.PipeWriter, chan os.Signal) {
	t.Helper()
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	term := &fakeTerminal{}
	sigs := make(chan os.Signal, 1)
	h := New(testID, keychain.NewMemoryStore(),
		WithInput(pr),
		WithOutput(&bytes.Buffer{}),
		WithTerminal(term.current),
		WithInterrupt(sigs),
	)
	return h, term, pw, sigs
}

func TestPasswordPromptInterruptRestoresEcho(t *testing.T) {
	h, term, _, sigs := newInterruptibleHelper(t)
	sigs <- os.Interrupt

	pass, err := h.PasswordPrompt()
	require.ErrorIs(t, err, ErrInterrupted)
	assert.Empty(t, pass)
	assert.Equal(t, []string{"disable", "reset"}, term.events)
}

func TestCredentialPromptInterruptedAtUsername(t *testing.T) {
	h, term, _, sigs := newInterruptibleHelper(t)
	sigs <- syscall.SIGTERM

	auth, err := h.CredentialPrompt("ghcr.io")
	require.ErrorIs(t, err, ErrInterrupted)
	assert.Nil(t, auth)
	assert.Zero(t, term.disabled, "password read must not start")
}

func TestInterruptedReadFeedsNextPrompt(t *testing.T) {
	h, _, pw, sigs := newInterruptibleHelper(t)
	sigs <- os.Interrupt

	_, err := h.UserPrompt("ghcr.io")
	require.ErrorIs(t, err, ErrInterrupted)

	go pw.Write([]byte("alice\n"))
	user, err := h.UserPrompt("ghcr.io")
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
}

func TestInterruptibleHelperReadsNormally(t *testing.T) {
	h, term, pw, _ := newInterruptibleHelper(t)

	go pw.Write([]byte("alice\ns3cr3t\n"))
	auth, err := h.CredentialPrompt("ghcr.io")
	require.NoError(t, err)

	basic := auth.(*BasicAuthentication)
	assert.Equal(t, "alice", basic.Username())
	assert.Equal(t, "s3cr3t", basic.Password())
	assert.Equal(t, []string{"disable", "reset"}, term.events)
}
