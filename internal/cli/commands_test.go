package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/testutil"
)

var (
	alice = testutil.Alice.String()
	bob   = testutil.Bob.String()
	carol = testutil.Carol.String()
)

// ledgerCLI runs commands against one config file.
type ledgerCLI struct {
	t      *testing.T
	config string
}

func newLedgerCLI(t *testing.T, store string) *ledgerCLI {
	t.Helper()
	dir := t.TempDir()

	var storeYAML string
	switch store {
	case "sqlite":
		storeYAML = fmt.Sprintf("  driver: sqlite\n  path: %s\n", filepath.Join(dir, "sx.db"))
	case "leveldb":
		storeYAML = fmt.Sprintf("  driver: leveldb\n  path: %s\n", filepath.Join(dir, "ldb"))
	case "leveldb-direct":
		storeYAML = fmt.Sprintf("  driver: leveldb\n  path: %s\n  direct: true\n", filepath.Join(dir, "ldb"))
	default:
		t.Fatalf("unknown store %q", store)
	}
	cfg := "store:\n" + storeYAML + `rent:
  lamports_per_byte: 0
  overhead_bytes: 0
log:
  level: error
`
	path := filepath.Join(dir, "sx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return &ledgerCLI{t: t, config: path}
}

func (c *ledgerCLI) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Execute(append(args, "--config", c.config), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// ok runs a command that must succeed and returns its text output.
func (c *ledgerCLI) ok(args ...string) string {
	c.t.Helper()
	code, out, errOut := c.run(args...)
	require.Equal(c.t, ExitSuccess, code, "sx %v\nstdout: %s\nstderr: %s", args, out, errOut)
	return out
}

// jsonRun runs a command with --format json and decodes the envelope.
func (c *ledgerCLI) jsonRun(args ...string) (int, CLIResponse) {
	c.t.Helper()
	code, out, _ := c.run(append(args, "--format", "json")...)
	var resp CLIResponse
	require.NoError(c.t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return code, resp
}

func TestCLI_SocialFlow(t *testing.T) {
	for _, store := range []string{"sqlite", "leveldb", "leveldb-direct"} {
		t.Run(store, func(t *testing.T) {
			c := newLedgerCLI(t, store)

			out := c.ok("profile", "create", "alice", "--as", alice, "--display-name", "Alice", "--bio", "cid1", "--avatar", "cid2")
			assert.True(t, strings.HasPrefix(out, "#1 ProfileCreated "), out)

			c.ok("profile", "update", "--as", alice, "--display-name", "Alice A", "--bio", "cid3", "--avatar", "cid4")
			c.ok("profile", "rename", "alice2", "--as", alice)

			c.ok("follow", bob, "--as", alice)
			code, resp := c.jsonRun("follow", bob, "--as", alice)
			assert.Equal(t, ExitFailure, code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "AddressOccupied", resp.Error.Code)

			c.ok("unfollow", bob, "--as", alice)
			c.ok("follow", bob, "--as", alice)

			c.ok("post", "1", "bafy-post", "--as", bob)
			c.ok("like", bob, "1", "--as", alice)
			c.ok("comment", bob, "1", "1", "bafy-comment", "--as", carol)
			c.ok("topic", "1", "golang", "--as", bob)
			c.ok("unlike", bob, "1", "--as", alice)

			code, resp = c.jsonRun("unlike", bob, "1", "--as", alice)
			assert.Equal(t, ExitFailure, code)
			assert.Equal(t, "AddressNotFound", resp.Error.Code)

			out = c.ok("events")
			lines := strings.Split(strings.TrimSpace(out), "\n")
			require.Len(t, lines, 11)
			assert.True(t, strings.HasPrefix(lines[10], "#11 PostUnliked "), lines[10])

			code, resp = c.jsonRun("events", "--after", "9")
			assert.Equal(t, ExitSuccess, code)
			assert.Len(t, resp.Data, 2)
		})
	}
}

func TestCLI_TipAndBalance(t *testing.T) {
	c := newLedgerCLI(t, "sqlite")

	assert.Contains(t, c.ok("airdrop", alice, "100"), "+100 = 100")
	c.ok("tip", bob, "1", "10", "--as", alice)

	code, resp := c.jsonRun("balance", alice)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, float64(90), resp.Data.(map[string]any)["lamports"])
	assert.Equal(t, bob+" 10\n", c.ok("balance", bob))

	code, resp = c.jsonRun("tip", bob, "2", "1000", "--as", alice)
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "InsufficientFunds", resp.Error.Code)
	assert.Equal(t, alice, resp.Error.Address)
}

func TestCLI_DeriveAndShow(t *testing.T) {
	c := newLedgerCLI(t, "sqlite")
	c.ok("profile", "create", "alice", "--as", alice, "--display-name", "Alice", "--bio", "b", "--avatar", "a")

	code, resp := c.jsonRun("derive", "username", "alice")
	require.Equal(t, ExitSuccess, code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "username", data["namespace"])

	want, err := address.NewDeriver(address.DefaultProgram).Username("alice")
	require.NoError(t, err)
	assert.Equal(t, want.Address.String(), data["address"])

	out := c.ok("show", want.Address.String())
	assert.Contains(t, out, "username "+want.Address.String())
	assert.Contains(t, out, `"authority": "`+alice+`"`)

	code, resp = c.jsonRun("show", bob)
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "AddressNotFound", resp.Error.Code)
}

func TestCLI_DeriveKeys(t *testing.T) {
	c := newLedgerCLI(t, "sqlite")
	for _, args := range [][]string{
		{"profile", alice},
		{"follow", alice, bob},
		{"post", alice, "1"},
		{"tip", alice, "1"},
		{"like", alice, bob, "1"},
		{"comment", alice, "1", "2"},
		{"topic", "golang", alice, "1"},
	} {
		t.Run(args[0], func(t *testing.T) {
			out := c.ok(append([]string{"derive"}, args...)...)
			assert.True(t, strings.HasPrefix(out, args[0]+" "), out)
		})
	}
}

func TestCLI_ArgumentErrors(t *testing.T) {
	c := newLedgerCLI(t, "sqlite")
	tests := [][]string{
		{"follow", "not-an-address", "--as", alice},
		{"follow", bob, "--as", "0OIl"},
		{"post", "first", "cid", "--as", alice},
		{"tip", bob, "1", "ten", "--as", alice},
		{"derive", "retweet", "x"},
		{"derive", "follow", alice},
		{"balance", "zz"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			code, resp := c.jsonRun(args...)
			assert.Equal(t, ExitCommandError, code)
			require.NotNil(t, resp.Error)
		})
	}
}

func TestCLI_ValidationIsLedgerFailure(t *testing.T) {
	c := newLedgerCLI(t, "sqlite")
	code, resp := c.jsonRun("profile", "create", strings.Repeat("a", 33), "--as", alice,
		"--display-name", "A", "--bio", "b", "--avatar", "a")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "InvalidUsername", resp.Error.Code)
}

func TestCLI_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sx.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: postgres\n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := Execute([]string{"balance", alice, "--config", path}, &stdout, &stderr)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stdout.String(), "load config")
}

func TestCLI_MetricsTextfile(t *testing.T) {
	c := newLedgerCLI(t, "sqlite")
	textfile := filepath.Join(t.TempDir(), "sx.prom")
	f, err := os.OpenFile(c.config, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = fmt.Fprintf(f, "metrics:\n  textfile: %s\n", textfile)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	c.ok("follow", bob, "--as", alice)
	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sx_transitions_total{action="follow",outcome="ok"} 1`)

	// Each command rewrites the file with its own counts, rejections included.
	code, _, _ := c.run("follow", bob, "--as", alice)
	assert.Equal(t, ExitFailure, code)
	data, err = os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sx_transitions_total{action="follow",outcome="AddressOccupied"} 1`)
	assert.NotContains(t, string(data), `outcome="ok"`)
}
