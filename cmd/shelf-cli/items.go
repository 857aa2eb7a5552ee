package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/shelf/clientcli"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server is up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := getClient(cmd.Context())
		if err != nil {
			return err
		}

		status, err := client.Health(cmd.Context())
		if err != nil {
			return err
		}
		return getFormatter().FormatHealth(os.Stdout, status)
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your items",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := getClient(cmd.Context())
		if err != nil {
			return err
		}

		items, err := client.GetItems(cmd.Context())
		if err != nil {
			return err
		}
		return getFormatter().FormatItems(os.Stdout, items)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := getClient(cmd.Context())
		if err != nil {
			return err
		}

		item, err := client.GetItem(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return getFormatter().FormatItem(os.Stdout, item)
	},
}

var (
	itemName        string
	itemDescription string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an item",
	Long: `Create an item owned by the signed-in user.

Examples:
  shelf-cli create --name groceries --description "milk, eggs"
  shelf-cli create -n notes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := getClient(cmd.Context())
		if err != nil {
			return err
		}

		item, err := client.CreateItem(cmd.Context(), clientcli.ItemInput{
			Name:        itemName,
			Description: itemDescription,
		})
		if err != nil {
			return err
		}
		return getFormatter().FormatItem(os.Stdout, item)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace an item's name and description",
	Long: `Replace an item's name and description. Both values are sent;
an omitted flag clears the field.

Examples:
  shelf-cli update 9b2c... --name groceries --description "milk"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := getClient(cmd.Context())
		if err != nil {
			return err
		}

		item, err := client.UpdateItem(cmd.Context(), args[0], clientcli.ItemInput{
			Name:        itemName,
			Description: itemDescription,
		})
		if err != nil {
			return err
		}
		return getFormatter().FormatItem(os.Stdout, item)
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id> [id...]",
	Aliases: []string{"rm"},
	Short:   "Delete items",
	Long: `Delete one or more items. Every id is attempted; the command
fails if any delete failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := getClient(cmd.Context())
		if err != nil {
			return err
		}

		formatter := getFormatter()
		var failed error
		for _, id := range args {
			result, err := client.DeleteItem(cmd.Context(), id)
			if err != nil {
				_ = formatter.FormatError(os.Stderr, err)
				failed = errors.Join(failed, err)
				continue
			}
			if err := formatter.FormatDeleted(os.Stdout, result); err != nil {
				return err
			}
		}

		if failed != nil {
			return &exitError{code: 1}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{createCmd, updateCmd} {
		c.Flags().StringVarP(&itemName, "name", "n", "", "item name")
		c.Flags().StringVarP(&itemDescription, "description", "d", "", "item description")
	}
}
