// Command replay feeds the inbound datagrams of a wire capture back through
// the message handler and prints the world each session ended with.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/brensch/kickoff/capture"
	"github.com/brensch/kickoff/handler"
	"github.com/brensch/kickoff/logging"
	"github.com/brensch/kickoff/world"
)

// Result is the outcome of replaying one session.
type Result struct {
	Session   string       `json:"session"`
	Datagrams int          `json:"datagrams"`
	Sent      int          `json:"sent"`
	Errors    []string     `json:"errors,omitempty"`
	State     *world.State `json:"state"`
	Body      *world.Body  `json:"body"`
}

func main() {
	path := flag.String("capture", "", "Capture file written by the agent")
	session := flag.String("session", "", "Only replay this session")
	team := flag.String("team", "kickoff", "Our team name, used to tell teammates from opponents")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn or error")
	flag.Parse()

	if *path == "" && flag.NArg() == 1 {
		*path = flag.Arg(0)
	}
	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: replay [-session id] [-team name] capture.parquet")
		os.Exit(2)
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log, _ := logging.New(os.Stderr, logging.FormatText, level)

	records, err := capture.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read capture: %v\n", err)
		os.Exit(1)
	}
	results := replay(records, *team, *session, log)
	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "no matching sessions")
		os.Exit(1)
	}
	if err := writeResults(os.Stdout, results); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
}

// replay rebuilds one model per session, in order of first appearance.
// Handler errors are collected rather than fatal so a capture of a failed
// run can still be inspected.
func replay(records []capture.Record, team, only string, log *slog.Logger) []Result {
	bySession := map[string][]capture.Record{}
	var order []string
	for _, r := range records {
		if only != "" && r.Session != only {
			continue
		}
		if _, seen := bySession[r.Session]; !seen {
			order = append(order, r.Session)
		}
		bySession[r.Session] = append(bySession[r.Session], r)
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		recs := bySession[id]
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })

		model := world.NewModel(team)
		h := handler.New(model, log.With("session", id))
		res := Result{Session: id}
		for _, r := range recs {
			if r.Direction == capture.Out {
				res.Sent++
				continue
			}
			res.Datagrams++
			if _, err := h.HandleRaw(r.Payload); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("seq %d: %v", r.Seq, err))
			}
		}
		res.State = model.State()
		res.Body = model.Body()
		results = append(results, res)
	}
	return results
}

func writeResults(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
