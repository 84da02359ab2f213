// Shared helpers for stemma CLI commands.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mesh-intelligence/stemma/internal/resolve"
	"github.com/mesh-intelligence/stemma/internal/sidecar"
	"github.com/mesh-intelligence/stemma/internal/sqlite"
	"github.com/mesh-intelligence/stemma/pkg/types"
)

// openStore resolves the database path and opens the store. The caller
// must defer store.Close().
func openStore(requireExists bool) (*sqlite.Store, error) {
	dbPath, err := resolveDBPath(requireExists)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// newEngine wires a resolution engine over the store. slog.Logger
// already satisfies resolve.Logger.
func newEngine(store *sqlite.Store) *resolve.Engine {
	return resolve.NewEngine(store, sidecar.NewStore(), slog.Default())
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}

func isUserError(err error) bool {
	return errors.Is(err, types.ErrNotFound) ||
		errors.Is(err, types.ErrInvalidArgument) ||
		errors.Is(err, types.ErrUntracked) ||
		errors.Is(err, types.ErrConflict)
}

// fail prints the error and exits with the appropriate code.
func fail(context string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", context, err)
	if isUserError(err) {
		os.Exit(exitUserError)
	}
	os.Exit(exitSysError)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("marshal JSON", err)
	}
	fmt.Println(string(out))
}

// printArtefact writes the full human-readable view of an artefact:
// identity fields, tags, projects, and event history.
func printArtefact(store *sqlite.Store, art *types.Artefact) {
	tags, err := store.ListTags(art.ID)
	if err != nil {
		fail("list tags", err)
	}
	projects, err := store.ListProjects(art.ID)
	if err != nil {
		fail("list projects", err)
	}
	events, err := store.ListEvents(art.ID)
	if err != nil {
		fail("list events", err)
	}

	if flagJSON {
		printJSON(map[string]any{
			"artefact": art,
			"tags":     tags,
			"projects": projects,
			"events":   events,
		})
		return
	}

	fmt.Printf("DNA:         %s\n", art.DNA)
	fmt.Printf("Path:        %s\n", art.Path)
	fmt.Printf("Hash:        %s\n", art.Hash)
	if art.Type != "" {
		fmt.Printf("Type:        %s\n", art.Type)
	}
	if art.Description != "" {
		fmt.Printf("Description: %s\n", art.Description)
	}
	fmt.Printf("Created:     %s\n", art.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:     %s\n", art.UpdatedAt.Format("2006-01-02 15:04:05"))

	if len(tags) > 0 {
		fmt.Println("\nTags:")
		for _, tag := range tags {
			fmt.Printf("  %s\n", tag)
		}
	}
	if len(projects) > 0 {
		fmt.Println("\nProjects:")
		for _, p := range projects {
			fmt.Printf("  %s (%s)\n", p.ID, p.Name)
		}
	}
	if len(events) > 0 {
		fmt.Println("\nEvents:")
		for _, ev := range events {
			line := fmt.Sprintf("  [%s] %s", ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.Type)
			if ev.Description != "" {
				line += ": " + ev.Description
			}
			fmt.Println(line)
		}
	}
}

// printArtefactLine writes the one-line listing form of an artefact.
func printArtefactLine(art *types.Artefact) {
	typeLabel := art.Type
	if typeLabel == "" {
		typeLabel = "n/a"
	}
	fmt.Printf("%s  %-12s %s\n", art.DNA, typeLabel, art.Path)
}
