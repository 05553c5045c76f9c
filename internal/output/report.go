// Package output renders token lifecycle statistics.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/torosent/restauth/internal/metrics"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" or "json"; an empty string means text.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported stats format %q: use text or json", raw)
	}
}

// Write renders stats in the given format.
func Write(w io.Writer, stats metrics.Stats, format Format) error {
	if format == FormatJSON {
		return PrintJSONReport(w, stats)
	}
	PrintReport(w, stats)
	return nil
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Token Statistics ---")
	fmt.Fprintf(w, "Cache Hits:        %d\n", stats.CacheHits)
	fmt.Fprintf(w, "Fetches:           %d\n", stats.Fetches)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Uptime:            %s\n", stats.Uptime)

	if stats.Fetches > 0 {
		fmt.Fprintln(w, "\nFetch Latency:")
		fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
		fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
		fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
		fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
		fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
		fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)
	}

	if len(stats.Refreshes) > 0 {
		fmt.Fprintln(w, "\nRefreshes:")
		writeCounts(w, stats.Refreshes, "  ")
	}
	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nFetch Errors:")
		writeCounts(w, stats.Errors, "  ")
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// writeCounts prints counts sorted by descending value, then by name.
func writeCounts(w io.Writer, counts map[string]int64, indent string) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fmt.Fprintf(w, "%s%s: %d\n", indent, name, counts[name])
	}
}
