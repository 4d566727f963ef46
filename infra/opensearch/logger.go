package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mstgnz/gocips/provider"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// Logger handles OpenSearch logging operations
type Logger struct {
	client *Client
}

var _ provider.AuditLogger = (*Logger)(nil)

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

// LogGatewayEvent indexes an audit entry in the tenant's provider index
func (l *Logger) LogGatewayEvent(ctx context.Context, entry provider.AuditEntry) error {
	if !l.client.IsEnabled() {
		return nil
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.RequestID == "" {
		entry.RequestID = uuid.New().String()
	}
	entry.ErrorMessage = SanitizeForLog(entry.ErrorMessage)

	return l.index(ctx, l.client.GetLogIndexName(entry.TenantID, entry.Provider), entry.RequestID+"-"+entry.Operation, entry)
}

// LogSystemEvent indexes a system log entry
func (l *Logger) LogSystemEvent(ctx context.Context, entry any) error {
	if !l.client.IsEnabled() {
		return nil
	}
	return l.index(ctx, systemIndexName, "", entry)
}

func (l *Logger) index(ctx context.Context, indexName, documentID string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal log: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      indexName,
		DocumentID: documentID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}

	return nil
}

// SearchLogs searches the audit entries of a tenant
func (l *Logger) SearchLogs(ctx context.Context, tenantID, providerName string, query map[string]any) ([]provider.AuditEntry, error) {
	if !l.client.IsEnabled() {
		return nil, fmt.Errorf("logging is disabled")
	}

	searchQuery := map[string]any{
		"query": query,
		"sort": []map[string]any{
			{"timestamp": map[string]string{"order": "desc"}},
		},
		"size": 100,
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source provider.AuditEntry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := l.search(ctx, l.client.GetLogIndexName(tenantID, providerName), searchQuery, &searchResult); err != nil {
		return nil, err
	}

	logs := make([]provider.AuditEntry, len(searchResult.Hits.Hits))
	for i, hit := range searchResult.Hits.Hits {
		logs[i] = hit.Source
	}
	return logs, nil
}

// GetTransactionLogs retrieves every audit entry of one transaction
func (l *Logger) GetTransactionLogs(ctx context.Context, tenantID, providerName, txnID string) ([]provider.AuditEntry, error) {
	query := map[string]any{
		"term": map[string]any{
			"txn_id": txnID,
		},
	}
	return l.SearchLogs(ctx, tenantID, providerName, query)
}

// GetRecentErrorLogs retrieves failed operations of the last hours
func (l *Logger) GetRecentErrorLogs(ctx context.Context, tenantID, providerName string, hours int) ([]provider.AuditEntry, error) {
	query := map[string]any{
		"bool": map[string]any{
			"must": []map[string]any{
				{"range": map[string]any{"timestamp": map[string]any{"gte": fmt.Sprintf("now-%dh", hours)}}},
				{"exists": map[string]any{"field": "error_kind"}},
			},
		},
	}
	return l.SearchLogs(ctx, tenantID, providerName, query)
}

// GetProviderStats aggregates operations of the last hours
func (l *Logger) GetProviderStats(ctx context.Context, tenantID, providerName string, hours int) (map[string]any, error) {
	if !l.client.IsEnabled() {
		return nil, fmt.Errorf("logging is disabled")
	}

	aggQuery := map[string]any{
		"query": map[string]any{
			"range": map[string]any{
				"timestamp": map[string]any{"gte": fmt.Sprintf("now-%dh", hours)},
			},
		},
		"aggs": map[string]any{
			"operations":      map[string]any{"terms": map[string]any{"field": "operation", "size": 10}},
			"success_count":   map[string]any{"filter": map[string]any{"term": map[string]any{"success": true}}},
			"error_kinds":     map[string]any{"terms": map[string]any{"field": "error_kind", "size": 10}},
			"avg_duration_ms": map[string]any{"avg": map[string]any{"field": "duration_ms"}},
		},
		"size": 0,
	}

	var result map[string]any
	if err := l.search(ctx, l.client.GetLogIndexName(tenantID, providerName), aggQuery, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (l *Logger) search(ctx context.Context, indexName string, query map[string]any, out any) error {
	queryJSON, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch search error: %s", res.String())
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode search results: %w", err)
	}
	return nil
}

var sensitivePatterns = func() []*regexp.Regexp {
	fields := []string{
		"password", "creditor_password", "creditorPassword", "token", "TOKEN",
		"authorization", "x-api-key",
	}
	var patterns []*regexp.Regexp
	for _, field := range fields {
		patterns = append(patterns,
			regexp.MustCompile(fmt.Sprintf(`"%s"\s*:\s*"[^"]*"`, field)),
			regexp.MustCompile(fmt.Sprintf(`\b%s=[^,&\s]+`, field)),
		)
	}
	return patterns
}()

// SanitizeForLog removes credentials and tokens from data before logging
func SanitizeForLog(data string) string {
	result := data
	for _, re := range sensitivePatterns {
		result = re.ReplaceAllStringFunc(result, func(match string) string {
			if match[0] == '"' {
				return match[:strings.IndexByte(match, ':')+1] + `"***REDACTED***"`
			}
			return match[:strings.IndexByte(match, '=')+1] + "***REDACTED***"
		})
	}
	return result
}
