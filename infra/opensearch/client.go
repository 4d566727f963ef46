package opensearch

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mstgnz/gocips/infra/config"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

const (
	indexPrefix     = "gocips"
	systemIndexName = indexPrefix + "-system-logs"
)

// Client wraps the OpenSearch client
type Client struct {
	client *opensearch.Client
	config *config.AppConfig
}

// NewClient creates a new OpenSearch client
func NewClient(cfg *config.AppConfig) (*Client, error) {
	opensearchConfig := opensearch.Config{
		Addresses: []string{cfg.OpenSearchURL},
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Environment != "production",
			},
		},
		MaxRetries:    3,
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
	}

	if cfg.OpenSearchUser != "" && cfg.OpenSearchPass != "" {
		opensearchConfig.Username = cfg.OpenSearchUser
		opensearchConfig.Password = cfg.OpenSearchPass
	}

	client, err := opensearch.NewClient(opensearchConfig)
	if err != nil {
		return nil, err
	}

	osClient := &Client{
		client: client,
		config: cfg,
	}

	if err := osClient.setupIndices(context.Background()); err != nil {
		log.Printf("Warning: Failed to setup OpenSearch indices: %v", err)
	}

	return osClient, nil
}

// GetClient returns the underlying OpenSearch client
func (c *Client) GetClient() *opensearch.Client {
	return c.client
}

// setupIndices creates the shared audit and system indices
func (c *Client) setupIndices(ctx context.Context) error {
	for _, indexName := range []string{c.GetLogIndexName("", "connectips"), systemIndexName} {
		exists, err := c.indexExists(ctx, indexName)
		if err != nil {
			return fmt.Errorf("error checking index %s: %w", indexName, err)
		}
		if exists {
			continue
		}
		if err := c.createLogIndex(ctx, indexName); err != nil {
			return fmt.Errorf("error creating index %s: %w", indexName, err)
		}
		log.Printf("Created OpenSearch index: %s", indexName)
	}
	return nil
}

func (c *Client) indexExists(ctx context.Context, indexName string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{
		Index: []string{indexName},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK, nil
}

// createLogIndex creates an index with the audit entry mapping
func (c *Client) createLogIndex(ctx context.Context, indexName string) error {
	mapping := `{
		"mappings": {
			"properties": {
				"timestamp":     {"type": "date", "format": "strict_date_optional_time||epoch_millis"},
				"tenant_id":     {"type": "keyword"},
				"provider":      {"type": "keyword"},
				"operation":     {"type": "keyword"},
				"request_id":    {"type": "keyword"},
				"txn_id":        {"type": "keyword"},
				"txn_amt":       {"type": "keyword"},
				"outcome":       {"type": "keyword"},
				"status":        {"type": "keyword"},
				"success":       {"type": "boolean"},
				"duration_ms":   {"type": "long"},
				"error_kind":    {"type": "keyword"},
				"error_message": {"type": "text"},
				"level":         {"type": "keyword"},
				"message":       {"type": "text"},
				"component":     {"type": "keyword"}
			}
		},
		"settings": {
			"number_of_shards": 1,
			"number_of_replicas": 0
		}
	}`

	req := opensearchapi.IndicesCreateRequest{
		Index: indexName,
		Body:  strings.NewReader(mapping),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index creation error: %s", res.String())
	}

	return nil
}

// GetLogIndexName returns the audit index of a tenant's provider logs.
// OpenSearch index names must be lowercase.
func (c *Client) GetLogIndexName(tenantID, provider string) string {
	if tenantID == "" {
		return strings.ToLower(indexPrefix + "-" + provider + "-logs")
	}
	return strings.ToLower(indexPrefix + "-" + tenantID + "-" + provider + "-logs")
}

// IsEnabled returns whether OpenSearch logging is enabled
func (c *Client) IsEnabled() bool {
	return c.config.EnableLogging
}

// Ping checks that the cluster answers
func (c *Client) Ping(ctx context.Context) error {
	res, err := opensearchapi.PingRequest{}.Do(ctx, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch ping failed: %s", res.Status())
	}
	return nil
}
