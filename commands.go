package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/pathrace/pathfind/config"
	"github.com/wricardo/pathrace/pathfind/grid"
	"github.com/wricardo/pathrace/pathfind/search"
	"github.com/wricardo/pathrace/pathfind/service"
	"github.com/wricardo/pathrace/pathfind/session"
)

func solveCommand() *cli.Command {
	return &cli.Command{
		Name:      "solve",
		Usage:     "Race both algorithms on a layout file or preset and print the result",
		ArgsUsage: "<layout.json | preset>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "algorithm",
				Value: "both",
				Usage: "dijkstra, astar or both",
			},
			&cli.StringFlag{
				Name:  "frontier",
				Value: string(search.FrontierSorted),
				Usage: "Frontier ordering: sorted or heap",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("solve needs exactly one layout file or preset name", 2)
			}

			req, err := solveRequest(cmd.Args().First(), cmd.String("config-dir"), cmd.String("algorithm"), cmd.String("frontier"))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			visualizer := service.NewVisualizer(session.NewManager(), nil)
			result, err := visualizer.Solve(ctx, req)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			printSolveResult(os.Stdout, req.Layout, result)
			return nil
		},
	}
}

// solveRequest resolves target as a layout file, falling back to a preset
// in configDir
func solveRequest(target, configDir, algorithm, frontier string) (*service.SolveRequest, error) {
	var layout *grid.Layout
	if _, err := os.Stat(target); err == nil {
		layout, err = config.ReadLayoutFile(target)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", target, err)
		}
		if layout.Name == "" {
			layout.Name = strings.TrimSuffix(filepath.Base(target), ".json")
		}
	} else {
		layouts, err := config.NewManager(configDir)
		if err != nil {
			return nil, err
		}
		layout, err = layouts.LoadLayout(target)
		if err != nil {
			return nil, fmt.Errorf("layout '%s': %w", target, err)
		}
	}

	req := &service.SolveRequest{
		Layout:   layout,
		Frontier: search.FrontierKind(frontier),
	}
	if frontier != string(search.FrontierSorted) && frontier != string(search.FrontierHeap) {
		return nil, fmt.Errorf("unknown frontier '%s' (use sorted or heap)", frontier)
	}
	if algorithm != "" && algorithm != "both" {
		parsed, err := search.ParseAlgorithm(algorithm)
		if err != nil {
			return nil, err
		}
		req.Algorithms = []search.Algorithm{parsed}
	}
	return req, nil
}

// printSolveResult prints each algorithm's rendering followed by a summary
func printSolveResult(w io.Writer, layout *grid.Layout, result *service.SolveResult) {
	fmt.Fprintf(w, "%s (%dx%d)\n", layout.Name, result.Size, result.Size)

	for _, r := range result.Results {
		fmt.Fprintf(w, "\n== %s ==\n", r.Algorithm)
		for _, row := range result.Rendered[string(r.Algorithm)] {
			fmt.Fprintln(w, row)
		}
	}

	fmt.Fprintf(w, "\n%-10s %-10s %-12s %8s %8s %6s\n", "ALGORITHM", "STATUS", "REASON", "VISITED", "LENGTH", "STEPS")
	for _, r := range result.Results {
		length := "-"
		if r.Found {
			length = fmt.Sprintf("%d", r.PathLength)
		}
		reason := string(r.Reason)
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(w, "%-10s %-10s %-12s %8d %8s %6d\n", r.Algorithm, r.Status, reason, r.VisitedCount, length, r.Steps)
	}
	if len(result.Results) > 1 {
		fmt.Fprintf(w, "\nagree: %v\n", result.Agree)
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate layout files (defaults to every preset in the config directory)",
		ArgsUsage: "[layout.json...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				files, err = filepath.Glob(filepath.Join(cmd.String("config-dir"), "*.json"))
				if err != nil {
					return cli.Exit(fmt.Sprintf("Error finding layout files: %v", err), 1)
				}
			}
			if len(files) == 0 {
				return cli.Exit("no layout files found", 1)
			}

			if !printValidation(os.Stdout, files) {
				return cli.Exit("Some layouts have errors", 1)
			}
			return nil
		},
	}
}

// ValidationResult captures the outcome of validating a single file. When
// Valid is set Messages are informational; otherwise they are the errors.
type ValidationResult struct {
	File     string
	Valid    bool
	Messages []string
}

// validateLayoutFile checks the structure of a layout file and reports
// whether the end is reachable. An unreachable end is allowed.
func validateLayoutFile(path string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	layout, err := config.ReadLayoutFile(path)
	if err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, err.Error())
		return result
	}

	g, err := grid.FromLayout(layout)
	if err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, err.Error())
		return result
	}

	walls := len(g.Walls())
	result.Messages = append(result.Messages,
		fmt.Sprintf("Grid: %dx%d, %d walls (%.0f%%)", layout.Size, layout.Size, walls, 100*float64(walls)/float64(layout.Size*layout.Size)))

	res, err := search.Solve(search.Dijkstra, g)
	if err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, err.Error())
		return result
	}
	if res.Found {
		result.Messages = append(result.Messages, fmt.Sprintf("Reachable: shortest path %d", res.PathLength))
	} else {
		result.Messages = append(result.Messages, "End is unreachable from start")
	}
	return result
}

// printValidation validates every file and reports whether all were valid
func printValidation(w io.Writer, files []string) bool {
	allValid := true
	for _, file := range files {
		result := validateLayoutFile(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintln(w, "VALID")
		} else {
			fmt.Fprintln(w, "INVALID")
			allValid = false
		}
		for _, msg := range result.Messages {
			fmt.Fprintln(w, "  "+msg)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "All layouts are valid")
	} else {
		fmt.Fprintln(w, "Some layouts have errors")
	}
	return allValid
}
