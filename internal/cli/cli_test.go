package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reciclo/internal/pkg/auth"
	"reciclo/internal/pkg/logger"
	"reciclo/internal/stubapi"
)

type harness struct {
	t      *testing.T
	server *httptest.Server
	// profileReads counts GET /api/auth/user/ requests.
	profileReads atomic.Int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := stubapi.NewSQLite(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	backend := stubapi.NewBackend(store, auth.NewIssuer("cli-secret", time.Hour), nil, logger.Nop())
	require.NoError(t, backend.SeedCurator(context.Background(), "curator", "curator@example.com", "pw"))
	h := &harness{t: t}
	router := stubapi.NewServer(backend, "", logger.Nop()).NewRouter()
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodGet && req.URL.Path == "/api/auth/user/" {
			h.profileReads.Add(1)
		}
		router.ServeHTTP(w, req)
	}))
	t.Cleanup(h.server.Close)
	return h
}

// user returns a runner bound to its own session file. Global flags go last so that
// positional arguments stay in place.
func (h *harness) user() func(stdin string, args ...string) (string, string, error) {
	dir := h.t.TempDir()
	return func(stdin string, args ...string) (string, string, error) {
		var stdout, stderr bytes.Buffer
		base := []string{
			"--api", h.server.URL,
			"--session", filepath.Join(dir, "session.db"),
			"--download-dir", filepath.Join(dir, "downloads"),
			"--log-level", "error",
		}
		full := append(append([]string{}, args...), base...)
		err := Execute(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)
		return stdout.String(), stderr.String(), err
	}
}

func TestAuthCommands(t *testing.T) {
	h := newHarness(t)
	run := h.user()

	out, _, err := run("", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in.\n", out)

	out, _, err = run("ana\nana@example.com\nsecret\nsecret\n", "register")
	require.NoError(t, err)
	assert.Equal(t, "Welcome, ana!\n", out)

	out, _, err = run("", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "ana@example.com")

	_, stderr, err := run("", "logout")
	require.NoError(t, err)
	assert.Empty(t, stderr)

	_, stderr, err = run("", "login", "--email", "ana@example.com", "--password", "wrong")
	assert.ErrorIs(t, err, ErrFailed)
	assert.Equal(t, "[error] Unable to log in with provided credentials.\n", stderr)

	out, _, err = run("secret\n", "login", "--email", "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Logged in as ana\n", out)

	out, stderr, err = run("", "profile", "edit", "--username", "ana_maria")
	require.NoError(t, err)
	assert.Contains(t, stderr, "[ok] Profile updated successfully!")
	assert.Contains(t, out, "ana_maria")
}

func TestLogoutSkipsSessionRestore(t *testing.T) {
	h := newHarness(t)
	run := h.user()
	_, _, err := run("", "register", "--username", "leaver", "--email", "leaver@example.com", "--password", "pw")
	require.NoError(t, err)

	reads := h.profileReads.Load()
	out, _, err := run("", "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out.\n", out)
	assert.Equal(t, reads, h.profileReads.Load())

	out, _, err = run("", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in.\n", out)
	assert.Equal(t, reads, h.profileReads.Load())
}

func TestRegisterPasswordMismatch(t *testing.T) {
	run := newHarness(t).user()

	_, stderr, err := run("", "register", "--username", "rui", "--email", "rui@example.com", "--password", "a", "--password-confirm", "b")
	assert.ErrorIs(t, err, ErrFailed)
	assert.Equal(t, "[error] The passwords do not match.\n", stderr)
}

func TestRecycleAndDashboard(t *testing.T) {
	run := newHarness(t).user()
	_, _, err := run("", "register", "--username", "eco", "--email", "eco@example.com", "--password", "pw")
	require.NoError(t, err)

	_, stderr, err := run("", "recycle", "--type", "Outro", "--volume", "1L", "--quantity", "2")
	assert.ErrorIs(t, err, ErrFailed)
	assert.Equal(t, "[error] Choose the bottle type.\n", stderr)

	out, stderr, err := run("", "recycle", "--type", "Outro", "--custom-type", "Vidro", "--volume", "1L", "--quantity", "2")
	require.NoError(t, err)
	assert.Contains(t, stderr, "[ok] 2 bottle(s) registered. You earned 4 coins.")
	assert.Contains(t, out, "Coins earned: 4")
	assert.Contains(t, out, "First bottle")

	out, _, err = run("", "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "20/100")
	assert.Contains(t, out, "[x]")
	assert.Contains(t, out, "2/10 bottles")
}

func TestModelCommands(t *testing.T) {
	h := newHarness(t)
	owner, fan := h.user(), h.user()
	_, _, err := owner("", "register", "--username", "maker", "--email", "maker@example.com", "--password", "pw")
	require.NoError(t, err)
	_, _, err = fan("", "register", "--username", "fan", "--email", "fan@example.com", "--password", "pw")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "cubo.stl")
	require.NoError(t, os.WriteFile(file, []byte("solid cubo"), 0o600))
	out, _, err := owner("", "models", "upload", "--name", "Cubo", "--description", "Um cubo", "--file", file)
	require.NoError(t, err)
	id := strings.TrimSpace(out)

	out, _, err = fan("", "models", "list", "cubo")
	require.NoError(t, err)
	assert.Contains(t, out, "Cubo")
	assert.Contains(t, out, "maker")

	out, _, err = fan("", "models", "like", id)
	require.NoError(t, err)
	assert.Equal(t, "liked: yes (1 likes)\n", out)

	out, _, err = fan("", "models", "download", id)
	require.NoError(t, err)
	location := strings.TrimSpace(out)
	assert.Equal(t, "cubo.zip", filepath.Base(location))
	_, err = os.Stat(location)
	assert.NoError(t, err)

	_, _, err = fan("", "models", "comment", id, "Gostei", "muito")
	require.NoError(t, err)
	out, _, err = owner("", "models", "comments", id)
	require.NoError(t, err)
	assert.Contains(t, out, "fan: Gostei muito")

	_, stderr, err := fan("", "models", "hide", id)
	assert.ErrorIs(t, err, ErrFailed)
	assert.Contains(t, stderr, "[error]")

	_, _, err = owner("", "models", "edit", id, "--name", "Cubo 2")
	require.NoError(t, err)
	out, _, err = fan("", "models", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Cubo 2")
	assert.Contains(t, out, "cubo.stl")

	_, _, err = owner("", "models", "delete", id)
	require.NoError(t, err)
	_, stderr, err = fan("", "models", "show", id)
	assert.ErrorIs(t, err, ErrFailed)
	assert.Equal(t, "[error] Model not found or failed to load.\n", stderr)

	_, _, err = fan("", "models", "show", "abc")
	assert.EqualError(t, err, `invalid id "abc"`)
}

func TestMarketCommands(t *testing.T) {
	h := newHarness(t)
	seller, buyer := h.user(), h.user()
	_, _, err := seller("", "register", "--username", "seller", "--email", "seller@example.com", "--password", "pw")
	require.NoError(t, err)
	_, _, err = buyer("", "register", "--username", "buyer", "--email", "buyer@example.com", "--password", "pw")
	require.NoError(t, err)
	_, _, err = seller("", "recycle", "--type", "PET", "--volume", "1L", "--quantity", "5")
	require.NoError(t, err)

	_, stderr, err := seller("", "market", "sell", "--amount", "50", "--price", "1")
	assert.ErrorIs(t, err, ErrFailed)
	assert.Equal(t, "[error] You do not have enough recycling coins to create this offer.\n", stderr)

	out, _, err := seller("", "market", "sell", "--amount", "4", "--price", "0.5", "--to", "buyer")
	require.NoError(t, err)
	assert.Regexp(t, `recycling\s+6\n`, out)

	out, _, err = buyer("", "market", "offers")
	require.NoError(t, err)
	assert.Contains(t, out, "seller")
	fields := strings.Fields(strings.Split(out, "\n")[2])
	require.NotEmpty(t, fields)

	_, _, err = buyer("", "market", "buy", fields[0])
	require.NoError(t, err)
	out, _, err = buyer("", "market", "balance")
	require.NoError(t, err)
	assert.Regexp(t, `recycling\s+4\n`, out)

	out, _, err = buyer("", "market", "transactions")
	require.NoError(t, err)
	assert.Contains(t, out, "sale")

	_, _, err = buyer("", "market", "exchange", "--to", "seller", "--offer-recycling", "2", "--request-reputation", "1")
	require.NoError(t, err)
	out, _, err = seller("", "market", "exchanges")
	require.NoError(t, err)
	assert.Contains(t, out, "pending")

	out, _, err = seller("", "market", "users", "buy")
	require.NoError(t, err)
	assert.Contains(t, out, "buyer")

	_, _, err = seller("", "market", "exchange", "--to", "nobody", "--offer-recycling", "1", "--request-reputation", "1")
	assert.EqualError(t, err, `no user named "nobody"`)
}

func TestLiveUserSearch(t *testing.T) {
	h := newHarness(t)
	run := h.user()
	_, _, err := run("", "register", "--username", "searcher", "--email", "searcher@example.com", "--password", "pw")
	require.NoError(t, err)

	out, _, err := run("c\ncu\ncur\n", "market", "users")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "Results for"), "Only the last term is searched")
	assert.Contains(t, out, `Results for "cur"`)
	assert.Contains(t, out, "curator")
}

func TestPrompterPasswordOnTerminal(t *testing.T) {
	origRead, origTerm := readPassword, isTerminal
	t.Cleanup(func() { readPassword, isTerminal = origRead, origTerm })
	readPassword = func(int) ([]byte, error) { return []byte("hidden"), nil }
	isTerminal = func(io.Reader) bool { return true }

	var prompts bytes.Buffer
	p := newPrompter(os.Stdin, &prompts)
	pw, err := p.orAskSecret("", "Password")
	require.NoError(t, err)
	assert.Equal(t, "hidden", pw)
	assert.Equal(t, "Password: \n", prompts.String())

	pw, err = p.orAskSecret("given", "Password")
	require.NoError(t, err)
	assert.Equal(t, "given", pw)
}
