// Package trackgraph parses an approved plan into dependency-ordered
// tracks and derives the execution rounds. Pure functions only.
package trackgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/axiomantic/spellbook/internal/models"
)

// CyclicDependencyError reports a dependency cycle between tracks.
// The cycle is always named; it is never silently broken.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic track dependency: %s", strings.Join(e.Cycle, " -> "))
}

// Extract parses plan text into tracks and validates the dependency
// graph. On any structural error (malformed block, duplicate or unknown
// track id, cycle) it returns no tracks at all - never a partial DAG.
//
// Track block format:
//
//	## Track A: Database layer
//	Depends-on: none
//	Files: internal/db/db.go, internal/db/schema.go
//	- [ ] Create schema (files: internal/db/schema.go)
//	- [ ] Add migrations
func Extract(planText string) ([]models.Track, error) {
	var tracks []models.Track
	var current *models.Track
	seen := map[string]bool{}

	for lineNo, raw := range strings.Split(planText, "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(line, "## Track "):
			track, err := parseHeader(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			if seen[track.ID] {
				return nil, fmt.Errorf("line %d: duplicate track id %q", lineNo+1, track.ID)
			}
			seen[track.ID] = true
			tracks = append(tracks, track)
			current = &tracks[len(tracks)-1]

		case strings.HasPrefix(line, "Depends-on:"):
			if current == nil {
				return nil, fmt.Errorf("line %d: dependency annotation outside a track block", lineNo+1)
			}
			current.DependsOn = parseList(strings.TrimPrefix(line, "Depends-on:"))

		case strings.HasPrefix(line, "Files:"):
			if current == nil {
				return nil, fmt.Errorf("line %d: file list outside a track block", lineNo+1)
			}
			current.Files = parseList(strings.TrimPrefix(line, "Files:"))

		case strings.HasPrefix(line, "- [ ]") || strings.HasPrefix(line, "- [x]"):
			if current == nil {
				return nil, fmt.Errorf("line %d: task outside a track block", lineNo+1)
			}
			current.Tasks = append(current.Tasks, parseTask(line[5:]))
		}
	}

	if len(tracks) == 0 {
		return nil, fmt.Errorf("plan contains no track blocks")
	}

	for _, tr := range tracks {
		for _, dep := range tr.DependsOn {
			if !seen[dep] {
				return nil, fmt.Errorf("track %s depends on unknown track %q", tr.ID, dep)
			}
			if dep == tr.ID {
				return nil, &CyclicDependencyError{Cycle: []string{tr.ID, tr.ID}}
			}
		}
	}

	if _, err := Rounds(tracks); err != nil {
		return nil, err
	}

	return tracks, nil
}

// parseHeader parses "## Track <id>: <name>".
func parseHeader(line string) (models.Track, error) {
	rest := strings.TrimPrefix(line, "## Track ")
	id, name, ok := strings.Cut(rest, ":")
	if !ok {
		return models.Track{}, fmt.Errorf("invalid track header %q: expected '## Track <id>: <name>'", line)
	}
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return models.Track{}, fmt.Errorf("invalid track header %q: empty id or name", line)
	}
	return models.Track{ID: id, Name: name}, nil
}

// parseList splits a comma-separated annotation; "none" and "-" mean empty.
func parseList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") || s == "-" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseTask parses a task line body with an optional "(files: a, b)" suffix.
func parseTask(body string) models.Task {
	body = strings.TrimSpace(body)
	if idx := strings.LastIndex(body, "(files:"); idx >= 0 && strings.HasSuffix(body, ")") {
		files := parseList(body[idx+len("(files:") : len(body)-1])
		return models.Task{
			Description: strings.TrimSpace(body[:idx]),
			Files:       files,
		}
	}
	return models.Task{Description: body}
}

// Rounds performs Kahn's algorithm over the tracks and groups them into
// execution rounds: round 0 holds the dependency-free tracks, each later
// round holds the tracks whose dependencies all live in strictly earlier
// rounds. Within a round the original plan order is preserved.
func Rounds(tracks []models.Track) ([][]string, error) {
	order := make([]string, 0, len(tracks))
	indegree := make(map[string]int, len(tracks))
	dependents := make(map[string][]string, len(tracks))

	for _, tr := range tracks {
		order = append(order, tr.ID)
		indegree[tr.ID] = len(tr.DependsOn)
		for _, dep := range tr.DependsOn {
			dependents[dep] = append(dependents[dep], tr.ID)
		}
	}

	var rounds [][]string
	placed := 0
	frontier := make([]string, 0, len(tracks))
	for _, id := range order {
		if indegree[id] == 0 {
			frontier = append(frontier, id)
		}
	}

	for len(frontier) > 0 {
		round := frontier
		rounds = append(rounds, round)
		placed += len(round)

		frontier = nil
		released := map[string]bool{}
		for _, id := range round {
			for _, next := range dependents[id] {
				indegree[next]--
				if indegree[next] == 0 {
					released[next] = true
				}
			}
		}
		// Keep plan order within the new round.
		for _, id := range order {
			if released[id] {
				frontier = append(frontier, id)
			}
		}
	}

	if placed < len(tracks) {
		return nil, &CyclicDependencyError{Cycle: remainingCycle(tracks, indegree)}
	}

	return rounds, nil
}

// remainingCycle names the tracks left with unsatisfiable dependencies
// after Kahn's algorithm stalls, walking one actual cycle among them.
func remainingCycle(tracks []models.Track, indegree map[string]int) []string {
	stuck := map[string][]string{}
	for _, tr := range tracks {
		if indegree[tr.ID] > 0 {
			for _, dep := range tr.DependsOn {
				if indegree[dep] > 0 {
					stuck[tr.ID] = append(stuck[tr.ID], dep)
				}
			}
		}
	}

	ids := make([]string, 0, len(stuck))
	for id := range stuck {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return nil
	}

	// Follow edges from the first stuck node until a node repeats.
	path := []string{ids[0]}
	onPath := map[string]int{ids[0]: 0}
	cur := ids[0]
	for {
		next := stuck[cur][0]
		if start, ok := onPath[next]; ok {
			return append(path[start:], next)
		}
		onPath[next] = len(path)
		path = append(path, next)
		cur = next
	}
}
