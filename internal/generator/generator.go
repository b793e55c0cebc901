// Package generator implements the pipeline that produces the AdGuard Home upstream configuration: download each
// domain list, merge the domains they contain against the manual overrides, sanity-check the result and atomically
// replace the output file.
package generator

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidsbond/x/set"

	"github.com/davidsbond/chinadns/internal/override"
)

type (
	// The Document type is the parsed form of a single downloaded domain list.
	Document struct {
		// The URL the document was downloaded from.
		URL string
		// The domains the document routes, in order of appearance with duplicates removed.
		Domains []string
	}

	// The InsufficientRecordsError type indicates that the merged record count fell below the configured
	// minimum. This is the only guard against a truncated or bogus download (an error page served with a 200,
	// for example) being written into live configuration.
	InsufficientRecordsError struct {
		Count   int
		Minimum int
	}

	// The WriteError type describes a failure to persist the generated configuration. Depending on the stage
	// the failure occurred at, the previous output file may already have been copied to its ".bak" sibling.
	WriteError struct {
		Stage string
		Err   error
	}
)

// Error returns a human-readable description of the failed sanity check.
func (e *InsufficientRecordsError) Error() string {
	return fmt.Sprintf("only %d records found, expected at least %d", e.Count, e.Minimum)
}

// Error returns a human-readable description of the failed write.
func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write configuration (%s): %v", e.Stage, e.Err)
}

// Unwrap returns the underlying filesystem error.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// Merge combines the domains of all documents into a single record slice, dropping duplicates across documents
// and any domain the user has overridden manually. Documents are processed in order and domains keep their
// first-seen position, so the result is deterministic for a given set of inputs.
func Merge(documents []Document, overrides *override.Overrides) []string {
	seen := set.New[string]()

	var records []string

	for _, document := range documents {
		for _, domain := range document.Domains {
			if seen.Contains(domain) || overrides.Contains(domain) {
				continue
			}

			seen.Put(domain)
			records = append(records, domain)
		}
	}

	return records
}

// Validate checks the merged record count against the configured minimum, returning an InsufficientRecordsError
// when it falls short. The check runs on the combined record set rather than per source, so one short list among
// several healthy ones can still pass.
func Validate(records []string, minimum int) error {
	if len(records) < minimum {
		return &InsufficientRecordsError{
			Count:   len(records),
			Minimum: minimum,
		}
	}

	return nil
}

// Write renders the configuration and atomically replaces the file at the specified path with it. The rendered
// content is the trusted resolver block, the override lines verbatim in file order, then one "[/<domain>/]<target>"
// line per record.
//
// The content is written to a temporary file in the target's directory so the final rename stays on one
// filesystem; a concurrent reader of path sees either the old file or the new one, never a partial write. A
// pre-existing file at path is first copied to path + ".bak", preserving its permission bits. A failure between
// that copy and the rename leaves the backup updated but the original untouched; this single-generation,
// best-effort backup is a deliberate limitation. The final file's permissions are forced to 0644 regardless of
// umask.
func Write(path string, trusted []string, overrides *override.Overrides, records []string, target string) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return &WriteError{Stage: "create temp file", Err: err}
	}

	// On the happy path the temp file is renamed away before this runs and the removal is a no-op.
	defer os.Remove(tmp.Name())

	if err = render(tmp, trusted, overrides, records, target); err != nil {
		tmp.Close()
		return &WriteError{Stage: "render", Err: err}
	}

	if err = tmp.Close(); err != nil {
		return &WriteError{Stage: "close temp file", Err: err}
	}

	if err = backup(path); err != nil {
		return &WriteError{Stage: "backup", Err: err}
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return &WriteError{Stage: "rename", Err: err}
	}

	if err = os.Chmod(path, 0o644); err != nil {
		return &WriteError{Stage: "chmod", Err: err}
	}

	return nil
}

func render(w io.Writer, trusted []string, overrides *override.Overrides, records []string, target string) error {
	if _, err := fmt.Fprintln(w, strings.Join(trusted, "\n")); err != nil {
		return err
	}

	for _, entry := range overrides.Entries() {
		if _, err := fmt.Fprintln(w, entry.Line); err != nil {
			return err
		}
	}

	for _, domain := range records {
		if _, err := fmt.Fprintf(w, "[/%s/]%s\n", domain, target); err != nil {
			return err
		}
	}

	return nil
}

// backup copies the file at path to path + ".bak", overwriting any previous backup and carrying over the
// source's permission bits. A missing source means there is nothing to back up.
func backup(path string) error {
	source, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return err
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return err
	}

	destination, err := os.OpenFile(path+".bak", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}

	if _, err = io.Copy(destination, source); err != nil {
		destination.Close()
		return err
	}

	if err = destination.Close(); err != nil {
		return err
	}

	return os.Chmod(path+".bak", info.Mode())
}

func levelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
