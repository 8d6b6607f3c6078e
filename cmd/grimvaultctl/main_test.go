package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimvault/internal/geometry"
	"grimvault/internal/native"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	found := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, name := range []string{"settings", "window", "pricecheck"} {
		assert.True(t, found[name], "missing subcommand %q", name)
	}
	assert.NotEmpty(t, rootCmd.Version)
}

func TestRootCommand_RejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "settings", "validate", "--dir", t.TempDir(), "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestEncode(t *testing.T) {
	v := SettingsResult{Path: "/tmp/settings.toml", Valid: true}

	var y bytes.Buffer
	require.NoError(t, encode(&y, "yaml", v))
	assert.Contains(t, y.String(), "path: /tmp/settings.toml")
	assert.Contains(t, y.String(), "valid: true")
	assert.NotContains(t, y.String(), "warnings")

	var j bytes.Buffer
	require.NoError(t, encode(&j, "json", v))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(j.Bytes(), &decoded))
	assert.Equal(t, "/tmp/settings.toml", decoded["path"])
	assert.Equal(t, true, decoded["valid"])
}

func TestSettingsValidate_CreatesDefaults(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "settings", "validate", "--dir", dir, "--format", "json")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, true, res["valid"])
	assert.Equal(t, filepath.Join(dir, "settings.toml"), res["path"])
	assert.FileExists(t, filepath.Join(dir, "settings.toml"))
}

func TestSettingsValidate_ReportsWarnings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.toml"), []byte("[general]\ncapture_method = \"vga\"\n"), 0644))

	out, err := execute(t, "settings", "validate", "--dir", dir, "--format", "json")
	require.NoError(t, err)

	var res SettingsResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Warnings)
	assert.Equal(t, "wgc", res.Settings.General.CaptureMethod)
}

type fakeSensor struct {
	title    string
	titleErr error
	info     *native.WindowInfo
	infoErr  error
}

func (f fakeSensor) ActiveWindowTitle() (string, error)          { return f.title, f.titleErr }
func (f fakeSensor) GameWindowInfo() (*native.WindowInfo, error) { return f.info, f.infoErr }

func TestProbe(t *testing.T) {
	res := probe(fakeSensor{
		title: "Dark and Darker",
		info: &native.WindowInfo{
			Bounds:  geometry.Rect{X: 2100, Y: 100, Width: 800, Height: 600},
			Monitor: geometry.Monitor{X: 2560, Y: 0, Width: 2560, Height: 1440, Scale: 1.25},
		},
	})

	assert.Equal(t, "Dark and Darker", res.ActiveTitle)
	require.NotNil(t, res.Physical)
	assert.Equal(t, geometry.Rect{X: 2625, Y: 125, Width: 1000, Height: 750}, *res.Physical)
	assert.Equal(t, geometry.Rect{X: 65, Y: 125, Width: 1000, Height: 750}, *res.Relative)
	assert.Empty(t, res.GameError)
}

func TestProbe_ReportsFailures(t *testing.T) {
	res := probe(fakeSensor{
		titleErr: errors.New("no active window"),
		infoErr:  errors.New("game window not found"),
	})

	assert.Equal(t, "no active window", res.ActiveError)
	assert.Equal(t, "game window not found", res.GameError)
	assert.Nil(t, res.Game)
	assert.Nil(t, res.Physical)
}

func TestPriceCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Lantern", r.URL.Query().Get("tooltip"))
		w.Write([]byte(`{"body":{"name":"Lantern","price":42}}`))
	}))
	defer srv.Close()

	out, err := execute(t, "pricecheck", "--text", "Lantern", "--api", srv.URL, "--format", "json")
	require.NoError(t, err)

	var res PriceCheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Found)
	assert.Equal(t, "Lantern", res.Result["name"])
	assert.Equal(t, srv.URL, res.API)
}

func TestPriceCheck_NoResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	out, err := execute(t, "pricecheck", "--text", "Nothing", "--api", srv.URL, "--format", "json")
	require.NoError(t, err)

	var res PriceCheckResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Found)
	assert.Nil(t, res.Result)
}

func TestPriceCheck_RequiresText(t *testing.T) {
	_, err := execute(t, "pricecheck", "--text", " ", "--format", "json")
	assert.ErrorContains(t, err, "specify --text")
}
