package migrate

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"time"
)

// Entry is one file in a status report. AppliedAt is nil while pending.
type Entry struct {
	File      string
	Version   string
	AppliedAt *time.Time
}

// SetStatus describes one tracked set of files.
type SetStatus struct {
	Entries []Entry
	Applied int
	Pending int
}

func (s SetStatus) Total() int { return len(s.Entries) }

// Report is the combined status of schema and seed files.
type Report struct {
	Migrations SetStatus
	Seeds      SetStatus
}

// Status compares the files on hand with the tracking tables. It never
// creates anything.
func (r *Runner) Status(ctx context.Context) (*Report, error) {
	migrations, err := r.setStatus(ctx, r.schema, SchemaTable)
	if err != nil {
		return nil, err
	}
	seeds, err := r.setStatus(ctx, r.seeds, SeedTable)
	if err != nil {
		return nil, err
	}
	return &Report{Migrations: migrations, Seeds: seeds}, nil
}

func (r *Runner) setStatus(ctx context.Context, fsys fs.FS, table string) (SetStatus, error) {
	applied, err := r.appliedVersions(ctx, table)
	if err != nil {
		return SetStatus{}, err
	}
	files, err := sqlFiles(fsys)
	if err != nil {
		return SetStatus{}, err
	}

	var s SetStatus
	for _, file := range files {
		e := Entry{File: file, Version: versionOf(file)}
		if at, ok := applied[e.Version]; ok {
			e.AppliedAt = &at
			s.Applied++
		} else {
			s.Pending++
		}
		s.Entries = append(s.Entries, e)
	}
	return s, nil
}

// Print writes the report in a human readable layout.
func (rep *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "Database Migration Status")
	fmt.Fprintln(w, "=========================")

	printSet := func(title string, s SetStatus) {
		fmt.Fprintf(w, "\n%s:\n", title)
		for _, e := range s.Entries {
			state := "pending"
			if e.AppliedAt != nil {
				state = "applied (" + e.AppliedAt.UTC().Format(time.RFC3339) + ")"
			}
			fmt.Fprintf(w, "  %s: %s\n", e.File, state)
		}
	}
	printSet("Migrations", rep.Migrations)
	printSet("Seeds", rep.Seeds)

	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "  Total migrations: %d\n", rep.Migrations.Total())
	fmt.Fprintf(w, "  Applied migrations: %d\n", rep.Migrations.Applied)
	fmt.Fprintf(w, "  Pending migrations: %d\n", rep.Migrations.Pending)
	fmt.Fprintf(w, "  Total seeds: %d\n", rep.Seeds.Total())
	fmt.Fprintf(w, "  Applied seeds: %d\n", rep.Seeds.Applied)
	fmt.Fprintf(w, "  Pending seeds: %d\n", rep.Seeds.Pending)
}
