package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshot = `
class: Universe
name: uni
dn: uni
children:
  - class: Tenant
    name: APP1
    dn: uni/tn-APP1
    children:
      - class: AppProfile
        name: APP1
        dn: uni/tn-APP1/ap-APP1
  - class: Tenant
    name: common
    dn: uni/tn-common
`

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fabric.yaml")
	require.NoError(t, os.WriteFile(path, []byte(snapshot), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).RunContext(context.Background(), append([]string{"fabricsearch"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestSearchCommand(t *testing.T) {
	out, _, err := run(t, "search", "--snapshot", writeSnapshot(t), "#Tenant", "=APP1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "SCORE")
	assert.Contains(t, lines[1], "uni/tn-APP1")
	assert.Contains(t, lines[1], "APP1 Tenant")
	assert.True(t, strings.HasPrefix(lines[1], "4 "))
	assert.Contains(t, lines[2], "uni/tn-APP1/ap-APP1")
	assert.Contains(t, lines[3], "uni/tn-common")
}

func TestSearchCommandReportsMore(t *testing.T) {
	out, _, err := run(t, "search", "--snapshot", writeSnapshot(t), "--limit", "1", "#Tenant")
	require.NoError(t, err)
	assert.Contains(t, out, "uni/tn-APP1")
	assert.NotContains(t, out, "uni/tn-common")
	assert.Contains(t, out, "1 more results")
}

func TestSearchCommandNoMatches(t *testing.T) {
	out, _, err := run(t, "search", "--snapshot", writeSnapshot(t), "#BridgeDomain")
	require.NoError(t, err)
	assert.Equal(t, "no matches\n", out)
}

func TestSearchCommandRequiresQuery(t *testing.T) {
	_, stderr, err := run(t, "search", "--snapshot", writeSnapshot(t))
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Contains(t, stderr, "a query is required")
}

func TestLoadFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	out, _, err := run(t, "search", "--snapshot", missing, "leaf")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))
	assert.Equal(t, loadFailure+"\n", out)
}

func TestObjectCommand(t *testing.T) {
	out, _, err := run(t, "object", "--snapshot", writeSnapshot(t), "uni/tn-APP1")
	require.NoError(t, err)
	assert.Contains(t, out, "Tenant APP1 (uni/tn-APP1)")
	assert.Contains(t, out, "parent: Universe uni (uni)")
	assert.Contains(t, out, "  name = APP1")
	assert.Contains(t, out, "  AppProfile APP1 (uni/tn-APP1/ap-APP1)")

	_, stderr, err := run(t, "object", "--snapshot", writeSnapshot(t), "uni/tn-nope")
	require.Error(t, err)
	assert.Contains(t, stderr, "object not found")
}

func TestClassesCommand(t *testing.T) {
	out, _, err := run(t, "classes", "--snapshot", writeSnapshot(t))
	require.NoError(t, err)
	assert.Contains(t, out, "AppProfile")
	assert.Regexp(t, `Tenant\s+2`, out)
}
