package executor

import (
	"bufio"
	"encoding/json"
	"strings"
	"time"

	"github.com/artpar/stackman/internal/core/domain"
)

// =============================================================================
// Service Listing Parsing
// =============================================================================

// psEntry mirrors the JSON-lines shape of a compose service listing.
type psEntry struct {
	Name      string `json:"Name"`
	State     string `json:"State"`
	Status    string `json:"Status"`
	Ports     string `json:"Ports"`
	CreatedAt string `json:"CreatedAt"`
}

// ParseServiceListing turns a JSON-lines service listing into a status
// report. Unparseable lines are skipped; the listing is best-effort data,
// not a contract.
func ParseServiceListing(stdout string, now time.Time) domain.StatusReport {
	report := domain.StatusReport{Timestamp: now}

	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry psEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		report.Services = append(report.Services, domain.ServiceStatusSample{
			Name:       entry.Name,
			State:      domain.NormalizeServiceState(entry.State),
			StatusText: entry.Status,
			Ports:      entry.Ports,
			CreatedAt:  entry.CreatedAt,
		})
	}

	return report
}
