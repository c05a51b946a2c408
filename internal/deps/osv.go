package deps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	osvBatchURL = "https://api.osv.dev/v1/querybatch"

	// maxBatchPackages caps a single batch query.
	maxBatchPackages = 200
)

// Vulnerability is the subset of an OSV record we report.
type Vulnerability struct {
	ID      string `json:"id"`
	Summary string `json:"summary,omitempty"`
}

// Finding ties vulnerabilities to the package they affect.
type Finding struct {
	Package         Package         `json:"package"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

// OSVClient queries the Open Source Vulnerabilities database.
type OSVClient struct {
	httpClient *http.Client
	url        string
}

// NewOSVClient returns a client with a sane request timeout.
func NewOSVClient() *OSVClient {
	return &OSVClient{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		url:        osvBatchURL,
	}
}

type osvQuery struct {
	Version string `json:"version,omitempty"`
	Package struct {
		Name      string `json:"name"`
		Ecosystem string `json:"ecosystem"`
	} `json:"package"`
}

type osvBatchRequest struct {
	Queries []osvQuery `json:"queries"`
}

type osvBatchResponse struct {
	Results []struct {
		Vulns []Vulnerability `json:"vulns"`
	} `json:"results"`
}

// Check queries OSV for the given packages and returns findings for any
// with known vulnerabilities. Packages beyond the batch cap are ignored.
func (c *OSVClient) Check(ctx context.Context, packages []Package) ([]Finding, error) {
	if len(packages) == 0 {
		return nil, nil
	}
	if len(packages) > maxBatchPackages {
		packages = packages[:maxBatchPackages]
	}

	req := osvBatchRequest{Queries: make([]osvQuery, len(packages))}
	for i, pkg := range packages {
		q := osvQuery{Version: pkg.Version}
		q.Package.Name = pkg.Name
		q.Package.Ecosystem = pkg.Ecosystem
		req.Queries[i] = q
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding osv query: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building osv request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("querying osv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("osv returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var batch osvBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decoding osv response: %w", err)
	}

	var findings []Finding
	for i, result := range batch.Results {
		if i >= len(packages) || len(result.Vulns) == 0 {
			continue
		}
		findings = append(findings, Finding{
			Package:         packages[i],
			Vulnerabilities: result.Vulns,
		})
	}
	return findings, nil
}
