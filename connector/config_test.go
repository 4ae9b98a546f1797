package connector

import (
	"bytes"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolateConfig points HOME at an empty directory and clears the config env vars
func isolateConfig(t *testing.T) string {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(ConfigEnvVar, "")
	t.Setenv("DKVC_PROJECT_KEY", "")
	return home
}

func writeConfig(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultConfig(t *testing.T) {
	assert := require.New(t)
	config := DefaultConfig()

	assert.NoError(config.Validate())
	assert.Equal("pAPI", config.ProjectKey)
	assert.Equal("dkvc", config.KeyPrefix)
	assert.Equal(uint64(100), config.Shard)
	assert.Equal("tcp", config.Transport)
	assert.Equal("json", config.Serializer)
	assert.Equal(10*time.Second, config.CacheTimeout())
	assert.Equal([]string{"localhost:8080"}, config.Client.Transport.Endpoints)
	assert.Equal(3, config.Client.Transport.RetryCount)
	assert.True(config.Client.Transport.TCPConf.TCPNoDelay)
	assert.Equal(512*1024, config.Client.Transport.SocketConf.WriteBufferSize)
}

func TestLoadConfigWithoutOverride(t *testing.T) {
	assert := require.New(t)
	isolateConfig(t)

	assert.Empty(LocateConfig())
	config, err := LoadConfig("")
	assert.NoError(err)
	assert.Equal(DefaultConfig().ProjectKey, config.ProjectKey)
	assert.Empty(config.Source)
	assert.Contains(config.String(), "bundled default")
}

func TestLoadConfigHomeOverride(t *testing.T) {
	assert := require.New(t)
	home := isolateConfig(t)

	path := filepath.Join(home, HomeConfigDir, ConfigFileName)
	writeConfig(t, path, "project-key: homeProject\nclient:\n  transport:\n    retries: 7\n")

	assert.Equal(path, LocateConfig())
	config, err := LoadConfig("")
	assert.NoError(err)
	assert.Equal("homeProject", config.ProjectKey)
	assert.Equal(7, config.Client.Transport.RetryCount)
	assert.Equal(path, config.Source)

	// untouched values come from the bundled default
	assert.Equal("dkvc", config.KeyPrefix)
	assert.Equal([]string{"localhost:8080"}, config.Client.Transport.Endpoints)
}

func TestLoadConfigEnvFileWinsOverHome(t *testing.T) {
	assert := require.New(t)
	home := isolateConfig(t)

	writeConfig(t, filepath.Join(home, HomeConfigDir, ConfigFileName), "project-key: homeProject\n")
	explicit := filepath.Join(t.TempDir(), "other.yaml")
	writeConfig(t, explicit, "project-key: explicitProject\n")
	t.Setenv(ConfigEnvVar, explicit)

	assert.Equal(explicit, LocateConfig())
	config, err := LoadConfig("")
	assert.NoError(err)
	assert.Equal("explicitProject", config.ProjectKey)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	assert := require.New(t)
	isolateConfig(t)
	t.Setenv("DKVC_PROJECT_KEY", "fromEnv")
	t.Setenv("DKVC_CLIENT_TIMEOUT", "42")

	config, err := LoadConfig("")
	assert.NoError(err)
	assert.Equal("fromEnv", config.ProjectKey)
	assert.Equal(42, config.Client.TimeoutSecond)
}

func TestLoadConfigErrors(t *testing.T) {
	assert := require.New(t)
	isolateConfig(t)
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(err)

	bad := filepath.Join(dir, "bad.yaml")
	writeConfig(t, bad, "transport: smoke-signals\n")
	_, err = LoadConfig(bad)
	assert.ErrorContains(err, "invalid transport")

	empty := filepath.Join(dir, "empty.yaml")
	writeConfig(t, empty, "project-key: \"\"\n")
	_, err = LoadConfig(empty)
	assert.ErrorContains(err, "project-key")
}

func TestWithConfigFile(t *testing.T) {
	assert := require.New(t)
	isolateConfig(t)

	path := filepath.Join(t.TempDir(), "client.yaml")
	writeConfig(t, path, "project-key: fileProject\n")

	b := newTestBackend()
	s := NewSession(WithConfigFile(path), WithOpener(b.open))
	root, err := s.Root(true)
	assert.NoError(err)
	assert.Equal(projectOID("fileProject"), root.OID())
	assert.Equal("fileProject", root.Connection().Config().ProjectKey)
}

func TestWatchConfigInvalidates(t *testing.T) {
	assert := require.New(t)
	isolateConfig(t)

	path := filepath.Join(t.TempDir(), "client.yaml")
	writeConfig(t, path, "project-key: before\n")

	b := newTestBackend()
	s := NewSession(WithConfigFile(path), WithOpener(b.open))
	conn, err := s.Connection(true)
	assert.NoError(err)
	assert.NoError(s.WatchConfig(path))

	writeConfig(t, path, "project-key: after\n")
	assert.Eventually(func() bool {
		return s.cached() == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(conn.Closed())

	next, err := s.Connection(true)
	assert.NoError(err)
	assert.Equal("after", next.Config().ProjectKey)
}

func TestWatchConfigWithoutFile(t *testing.T) {
	isolateConfig(t)
	require.Error(t, newTestBackend().session().WatchConfig(""))
}

func TestWriteMetrics(t *testing.T) {
	assert := require.New(t)
	b := newTestBackend()
	s := b.session()

	_, err := s.Root(true)
	assert.NoError(err)
	s.Invalidate()

	var buf bytes.Buffer
	WriteMetrics(&buf)
	out := buf.String()
	assert.Contains(out, "dkvc_connections_opened_total")
	assert.Contains(out, "dkvc_connections_invalidated_total")
	assert.Contains(out, "timer dkvc.connection.open")
}
