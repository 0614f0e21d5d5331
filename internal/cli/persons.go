package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/persons/internal/core"
)

var (
	listPage  int
	listLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List persons one page at a time",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Print one person as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete one person",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	listCmd.Flags().IntVar(&listPage, "page", 1, "page number, starting at 1")
	listCmd.Flags().IntVar(&listLimit, "limit", core.DefaultPageLimit, "persons per page (max 10)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	page, err := service.List(commandContext(cmd), listPage, listLimit)
	if err != nil {
		return commandError("list", err)
	}

	if len(page.Items) == 0 {
		cmd.Printf("No persons on page %d (%d total).\n", page.Page, page.Total)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tAGE\tCOUNTRY\tSTATUS")
	for _, p := range page.Items {
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%d\t%s\t%t\n",
			p.ID, p.Name, p.LastName, p.Email, p.Age, p.Country, p.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	cmd.Printf("Page %d of %d (%d total)\n", page.Page, page.Pages, page.Total)
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	p, err := service.Get(commandContext(cmd), args[0])
	if err != nil {
		return commandError("get", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := service.Delete(commandContext(cmd), args[0]); err != nil {
		return commandError("delete", err)
	}
	cmd.Printf("Person %s deleted.\n", args[0])
	return nil
}
