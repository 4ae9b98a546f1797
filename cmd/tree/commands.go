package tree

import (
	"fmt"
	"github.com/ValentinKolb/dKV-connector/cmd/util"
	"github.com/ValentinKolb/dKV-connector/connector"
	"github.com/spf13/cobra"
	"strings"
)

var (
	lsCmd = &cobra.Command{
		Use:   "ls [path]",
		Short: "Lists the keys of a tree or the members of a set",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return withRoot(func(root *connector.Tree) error {
				c, err := util.Walk(root, util.SplitPath(path))
				if err != nil {
					return err
				}

				switch v := c.(type) {
				case *connector.Set:
					members, err := v.Members()
					if err != nil {
						return err
					}
					for _, m := range members {
						fmt.Println(m)
					}
				case *connector.Tree:
					return v.Ascend(func(key string, value any) bool {
						if c, ok := value.(connector.Container); ok {
							n, err := c.Len()
							if err != nil {
								fmt.Printf("%-30s%s (%v)\n", key+"/", c.Kind(), err)
							} else {
								fmt.Printf("%-30s%s (%d)\n", key+"/", c.Kind(), n)
							}
						} else {
							fmt.Printf("%-30s%d bytes\n", key, len(value.([]byte)))
						}
						return true
					})
				}
				return nil
			})
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [path]",
		Short: "Prints the raw value stored at a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, key, err := util.SplitKey(args[0])
			if err != nil {
				return err
			}
			return withRoot(func(root *connector.Tree) error {
				tree, err := util.WalkTree(root, parent)
				if err != nil {
					return err
				}
				value, found, err := tree.Bytes(key)
				if err != nil {
					return err
				}
				fmt.Printf("key=%s, found=%v, value=%s\n", args[0], found, value)
				return nil
			})
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [path] [value]",
		Short: "Stores a raw value at a path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, key, err := util.SplitKey(args[0])
			if err != nil {
				return err
			}
			return withRoot(func(root *connector.Tree) error {
				tree, err := util.WalkTree(root, parent)
				if err != nil {
					return err
				}
				if err := tree.Set(key, []byte(args[1])); err != nil {
					return err
				}
				fmt.Println("set successfully")
				return nil
			})
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [path]",
		Short: "Deletes the value or container at a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, key, err := util.SplitKey(args[0])
			if err != nil {
				return err
			}
			return withRoot(func(root *connector.Tree) error {
				tree, err := util.WalkTree(root, parent)
				if err != nil {
					return err
				}
				deleted, err := tree.Delete(key)
				if err != nil {
					return err
				}
				fmt.Printf("key=%s, deleted=%v\n", args[0], deleted)
				return nil
			})
		},
	}
	mkCmd = &cobra.Command{
		Use:   "mk [path]",
		Short: "Creates a container at a path unless one exists",
		Long: util.WrapString(`Creates a container at a path unless one exists. ` +
			`An empty raw value at the path is replaced, any other value is an error.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, key, err := util.SplitKey(args[0])
			if err != nil {
				return err
			}
			kind, _ := cmd.Flags().GetString("kind")

			var c connector.Container
			switch connector.Kind(kind) {
			case connector.KindTree:
				c, err = makeContainer(parent, key, connector.NewTree)
			case connector.KindSet:
				c, err = makeContainer(parent, key, connector.NewSet)
			default:
				return fmt.Errorf("invalid kind %q, must be tree or set", kind)
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s %s (oid %s)\n", c.Kind(), args[0], c.OID())
			return nil
		},
	}
	addCmd = &cobra.Command{
		Use:   "add [path] [member]...",
		Short: "Adds members to the set at a path",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSet(args[0], func(set *connector.Set) error {
				for _, m := range args[1:] {
					added, err := set.Add(m)
					if err != nil {
						return err
					}
					fmt.Printf("member=%s, added=%v\n", m, added)
				}
				return nil
			})
		},
	}
	remCmd = &cobra.Command{
		Use:   "rem [path] [member]...",
		Short: "Removes members from the set at a path",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSet(args[0], func(set *connector.Set) error {
				for _, m := range args[1:] {
					removed, err := set.Remove(m)
					if err != nil {
						return err
					}
					fmt.Printf("member=%s, removed=%v\n", m, removed)
				}
				return nil
			})
		},
	}
)

func init() {
	mkCmd.Flags().String("kind", string(connector.KindTree), util.WrapString("Kind of the container (tree, set)"))
}

// makeContainer creates the container at parent/key. Top level keys go
// through KeyedValue, deeper ones are created in their parent tree.
func makeContainer[T connector.Container](parent []string, key string, factory func() T) (connector.Container, error) {
	if len(parent) == 0 {
		defer session.Invalidate()
		c, err := connector.KeyedValue(session, key, factory, true)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	var made connector.Container
	err := withRoot(func(root *connector.Tree) error {
		tree, err := util.WalkTree(root, parent)
		if err != nil {
			return err
		}

		value, found, err := tree.Get(key)
		if err != nil {
			return err
		}
		if c, ok := value.(connector.Container); ok {
			made = c
			return nil
		}
		if raw, _ := value.([]byte); found && len(raw) > 0 {
			return fmt.Errorf("%w: /%s holds raw bytes", connector.ErrKindMismatch, strings.Join(append(parent, key), "/"))
		}

		c := factory()
		if err := tree.Put(key, c); err != nil {
			return err
		}
		made = c
		return nil
	})
	return made, err
}

// withSet runs fn with the set at path
func withSet(path string, fn func(set *connector.Set) error) error {
	return withRoot(func(root *connector.Tree) error {
		c, err := util.Walk(root, util.SplitPath(path))
		if err != nil {
			return err
		}
		set, ok := c.(*connector.Set)
		if !ok {
			return fmt.Errorf("%w: /%s is a %s, not a set", connector.ErrKindMismatch, strings.Join(util.SplitPath(path), "/"), c.Kind())
		}
		return fn(set)
	})
}
