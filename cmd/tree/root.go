package tree

import (
	"github.com/ValentinKolb/dKV-connector/cmd/util"
	"github.com/ValentinKolb/dKV-connector/connector"
	"github.com/spf13/cobra"
)

var (
	session *connector.Session

	// Commands are the tree commands, added to the root command
	Commands = []*cobra.Command{lsCmd, getCmd, setCmd, delCmd, mkCmd, addCmd, remCmd, benchCmd}
)

func init() {
	for _, cmd := range Commands {
		cmd.PreRunE = setupSession
	}
	benchCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if err := setupSession(cmd, args); err != nil {
			return err
		}
		return processBenchConfig(cmd, args)
	}
}

// setupSession creates the session the command works with
func setupSession(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	s, err := util.NewSession()
	if err != nil {
		return err
	}
	session = s
	return nil
}

// withRoot runs fn with the project root and closes the connection afterwards
func withRoot(fn func(root *connector.Tree) error) error {
	defer session.Invalidate()

	root, err := session.Root(true)
	if err != nil {
		return err
	}
	return fn(root)
}
