package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
)

// Universe resolves the configured symbol universe and prints it.
func (a *App) Universe(ctx context.Context) error {
	src := a.newUniverseSource()
	listings, err := src.Load(ctx)
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		return errors.New("universe resolved empty")
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Symbol\tName")
	for _, listing := range listings {
		fmt.Fprintf(writer, "%s\t%s\n", listing.Symbol, listing.Name)
	}
	writer.Flush()

	fmt.Fprintf(os.Stdout, "%d symbols\n", len(listings))
	return nil
}
