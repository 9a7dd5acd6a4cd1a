package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/arclightning/arclight/config"
	"github.com/arclightning/arclight/launcher"
)

// listGames prints the catalog as a table. With an id, only that game is
// printed; an unknown id fails with the closest known id as a hint.
func listGames(cfg config.Config, id string, out io.Writer) error {
	file, err := config.LoadFile(cfg.ConfigFile)
	if err != nil {
		return err
	}
	cat := file.Catalog()

	ids := cat.IDs()
	if id != "" {
		if _, ok := cat.Lookup(id); !ok {
			if guess, found := cat.Suggest(id); found {
				return fmt.Errorf("no game %q (did you mean %q?)", id, guess)
			}
			return fmt.Errorf("no game %q", id)
		}
		ids = []string{id}
	}

	ok := color.New(color.FgGreen).SprintFunc()
	missing := color.New(color.FgRed).SprintFunc()

	table := tablewriter.NewWriter(out)
	table.SetAutoFormatHeaders(false)
	table.SetColWidth(60)
	table.SetHeader([]string{"ID", "Name", "Genres", "Command", "Executable"})
	for _, gid := range ids {
		g, _ := cat.Lookup(gid)
		cmd := launcher.Command{Path: g.ExePath, Args: g.ExeArgs}
		state := ok("found")
		if info, err := os.Stat(g.ExePath); err != nil || info.IsDir() {
			state = missing("missing")
		}
		table.Append([]string{gid, g.Name, strings.Join(g.Genres, ", "), cmd.String(), state})
	}
	table.Render()

	fmt.Fprintf(out, "%d game(s) in %s\n", len(ids), cfg.ConfigFile)
	return nil
}
