// Package override loads the user-maintained override file. Each entry pins a domain to a hand-written routing
// line that is emitted verbatim into the generated configuration, taking precedence over anything found in the
// downloaded lists.
package override

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/davidsbond/x/set"
)

type (
	// The Entry type pairs a domain with the exact line of text the user wrote for it.
	Entry struct {
		Domain string
		Line   string
	}

	// The Overrides type holds the parsed override file, preserving the file's original entry order.
	Overrides struct {
		domains *set.Set[string]
		entries []Entry
	}
)

// Load the override file at the specified path. A missing file is not an error and yields an empty Overrides;
// it just means the user has not configured any manual routing. Lines that do not look like
// "[/<domain>/]<target>" are logged and skipped. When a domain appears more than once the first entry wins.
func Load(path string, logger *slog.Logger) (*Overrides, error) {
	overrides := &Overrides{
		domains: set.New[string](),
	}

	file, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return overrides, nil
	case err != nil:
		return nil, err
	}
	defer file.Close()

	if err = overrides.parse(file, logger); err != nil {
		return nil, err
	}

	return overrides, nil
}

func (o *Overrides) parse(r io.Reader, logger *slog.Logger) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !strings.HasPrefix(line, "[/") {
			logger.With("line", line).Warn("skipping invalid override line")
			continue
		}

		end := strings.Index(line[len("[/"):], "/]")
		if end == -1 {
			logger.With("line", line).Warn("skipping invalid override line")
			continue
		}

		domain := line[len("[/") : len("[/")+end]
		if o.domains.Contains(domain) {
			logger.With("domain", domain).Warn("skipping duplicate override")
			continue
		}

		o.domains.Put(domain)
		o.entries = append(o.entries, Entry{
			Domain: domain,
			Line:   line,
		})
	}

	return scanner.Err()
}

// Contains returns true if the provided domain has a manual override.
func (o *Overrides) Contains(domain string) bool {
	return o.domains.Contains(domain)
}

// Entries returns the overrides in the order they appear in the override file.
func (o *Overrides) Entries() []Entry {
	return o.entries
}

// Len returns the number of overrides loaded.
func (o *Overrides) Len() int {
	return len(o.entries)
}
