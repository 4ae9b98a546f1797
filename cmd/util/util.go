package util

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dKV-connector/connector"
	"github.com/ValentinKolb/dKV-connector/lib/store"
	"github.com/ValentinKolb/dKV-connector/lib/store/memstore"
	"github.com/ValentinKolb/dKV-connector/rpc/client"
	"github.com/ValentinKolb/dKV-connector/rpc/serializer"
	"github.com/ValentinKolb/dKV-connector/rpc/transport/loopback"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitClientConfig loads .env files and makes viper read DKVC_* variables for the command flags
func InitClientConfig() {
	// load env files, a missing file is fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(connector.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// LoadConfig loads the connector config named by the config flag (or located as usual)
// and applies the project flag on top of it
func LoadConfig() (connector.Config, error) {
	config, err := connector.LoadConfig(viper.GetString("config"))
	if err != nil {
		return connector.Config{}, err
	}
	if project := viper.GetString("project"); project != "" {
		config.ProjectKey = project
	}
	return config, nil
}

// NewSession creates the session all commands of one invocation share.
// With the embedded flag set it serves an in-process memory store instead of connecting to a server.
func NewSession() (*connector.Session, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	opts := []connector.Option{connector.WithConfig(config)}
	if viper.GetBool("embedded") {
		opts = append(opts, connector.WithOpener(EmbeddedOpener(memstore.NewMemoryStore())))
	}
	return connector.NewSession(opts...), nil
}

// EmbeddedOpener returns an Opener that serves s through the loopback transport
func EmbeddedOpener(s store.IStore) connector.Opener {
	return func(config connector.Config) (store.IStore, error) {
		ser, err := serializer.ByName(config.Serializer)
		if err != nil {
			return nil, err
		}
		return client.NewRPCStore(config.Shard, config.Client, loopback.NewLoopbackClientTransport(s, ser), ser)
	}
}

// --------------------------------------------------------------------------
// Paths
// --------------------------------------------------------------------------

// SplitPath splits a slash separated path into its segments, ignoring empty ones
func SplitPath(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// SplitKey splits a path into the path of its parent and the last segment
func SplitKey(path string) ([]string, string, error) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return nil, "", errors.New("path must name a key")
	}
	return segments[:len(segments)-1], segments[len(segments)-1], nil
}

// Walk follows segments down from root and returns the container at the end
func Walk(root *connector.Tree, segments []string) (connector.Container, error) {
	var current connector.Container = root
	for i, segment := range segments {
		tree, ok := current.(*connector.Tree)
		if !ok {
			return nil, fmt.Errorf("/%s is a %s, not a tree", strings.Join(segments[:i], "/"), current.Kind())
		}

		value, found, err := tree.Get(segment)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("/%s does not exist", strings.Join(segments[:i+1], "/"))
		}

		c, ok := value.(connector.Container)
		if !ok {
			return nil, fmt.Errorf("/%s holds raw bytes", strings.Join(segments[:i+1], "/"))
		}
		current = c
	}
	return current, nil
}

// WalkTree is Walk for paths that must end at a tree
func WalkTree(root *connector.Tree, segments []string) (*connector.Tree, error) {
	c, err := Walk(root, segments)
	if err != nil {
		return nil, err
	}
	tree, ok := c.(*connector.Tree)
	if !ok {
		return nil, fmt.Errorf("/%s is a %s, not a tree", strings.Join(segments, "/"), c.Kind())
	}
	return tree, nil
}
