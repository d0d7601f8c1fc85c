// Command topola is the thin CLI driver over the routing core: it
// loads a Specctra .dsn design, either replays a command history file
// or autoroutes every ratline, and optionally writes the routed bands
// out as a .ses session.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"topola/board"
	"topola/core"
	"topola/dsn"
	"topola/executor"
	"topola/invoker"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var outputPath string
	var commandsPath string
	var verbose bool

	cmd := &cobra.Command{
		Use:           "topola <input.dsn>",
		Short:         "Autoroute a printed circuit board design",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				logrus.SetLevel(logrus.WarnLevel)
			}
			return run(args[0], outputPath, commandsPath)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write routed bands to a .ses session file")
	cmd.Flags().StringVarP(&commandsPath, "commands", "c", "", "replay a command history JSON file instead of autorouting everything")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log per-command progress")
	return cmd
}

func run(inputPath, outputPath, commandsPath string) error {
	design, err := dsn.LoadDesign(inputPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", inputPath, err)
	}
	factory, err := design.Factory()
	if err != nil {
		return fmt.Errorf("constructing board: %w", err)
	}
	inv := invoker.NewInvoker(factory)

	if commandsPath != "" {
		if err := replayCommands(inv, commandsPath); err != nil {
			return err
		}
	} else {
		if err := autorouteAll(inv, design); err != nil {
			return err
		}
	}

	if outputPath != "" {
		if err := writeSession(inv.Board(), inputPath, outputPath); err != nil {
			return err
		}
	}
	return nil
}

func replayCommands(inv *invoker.Invoker, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var history invoker.History
	if err := json.Unmarshal(data, &history); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := inv.LoadHistory(&history); err != nil {
		return fmt.Errorf("replaying %s: %w", path, err)
	}
	return nil
}

// autorouteAll routes every declared ratline by selecting every pin
// on the board.
func autorouteAll(inv *invoker.Invoker, design *dsn.Design) error {
	var selection []board.PinRef
	for ref := range inv.Board().Pins() {
		selection = append(selection, ref)
	}
	sort.Slice(selection, func(i, j int) bool {
		if selection[i].Pin != selection[j].Pin {
			return selection[i].Pin < selection[j].Pin
		}
		return selection[i].Layer < selection[j].Layer
	})

	width := design.Rule.Width
	if width == 0 {
		width = 1
	}
	exec, err := inv.Execute(invoker.AutorouteCommand{
		Selection: selection,
		Options: executor.Options{
			RoutedBandWidth: width,
			Wraparoundable:  true,
		},
	})
	if err != nil {
		return err
	}
	if _, err := exec.Finish(); err != nil {
		return err
	}
	return nil
}

func writeSession(b *board.Board, inputPath, outputPath string) error {
	bands := b.Bands()
	names := make([]board.BandName, 0, len(bands))
	for name := range bands {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	terms := make([]core.SegIndex, len(names))
	for i, name := range names {
		terms[i] = bands[name]
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return dsn.WriteSession(f, inputPath, b, terms)
}
