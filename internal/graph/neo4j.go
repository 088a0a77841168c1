package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/cypher"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

// LabelsKey holds a flattened node's labels.
const LabelsKey = "_labels"

// Neo4jOptions configures a Neo4jStore.
type Neo4jOptions struct {
	URI      string
	Username string
	Password string
	Database string
}

// querier runs auto-commit queries; neo4j.SessionWithContext satisfies it.
type querier interface {
	Run(ctx context.Context, cypher string, params map[string]any, configurers ...func(*neo4j.TransactionConfig)) (neo4j.ResultWithContext, error)
	Close(ctx context.Context) error
}

// Neo4jStore is a Store backed by a Neo4j (or Bolt-compatible) server.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	session  func(ctx context.Context) querier
	logger   *zap.Logger
}

// NewNeo4jStore connects and verifies connectivity. Any failure is reported
// as models.ErrGraphUnavailable.
func NewNeo4jStore(ctx context.Context, opts Neo4jOptions, logger *zap.Logger) (*Neo4jStore, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("%w: no uri configured", models.ErrGraphUnavailable)
	}
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGraphUnavailable, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: %v", models.ErrGraphUnavailable, err)
	}
	database := opts.Database
	if database == "" {
		database = "neo4j"
	}
	s := &Neo4jStore{driver: driver, database: database, logger: utils.OrNop(logger)}
	s.session = func(ctx context.Context) querier {
		return driver.NewSession(ctx, neo4j.SessionConfig{
			DatabaseName: database,
			AccessMode:   neo4j.AccessModeRead,
		})
	}
	return s, nil
}

// Run executes q as an auto-commit query in a read session. Auto-commit
// queries are never retried by the driver. Connectivity failures are reported
// as models.ErrGraphUnavailable.
func (s *Neo4jStore) Run(ctx context.Context, q cypher.Query) ([]map[string]interface{}, error) {
	if q.IsZero() {
		return nil, fmt.Errorf("%w: empty statement", models.ErrInvalidQuery)
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, q.Text(), q.Params())
	if err != nil {
		return nil, runError(err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, runError(err)
	}

	rows := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		row := make(map[string]interface{}, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = plainValue(record.Values[i])
		}
		rows = append(rows, row)
	}
	s.logger.Debug("graph query", zap.Int("rows", len(rows)))
	return rows, nil
}

func runError(err error) error {
	if neo4j.IsConnectivityError(err) {
		return fmt.Errorf("%w: %v", models.ErrGraphUnavailable, err)
	}
	return fmt.Errorf("run graph query: %w", err)
}

// Schema introspects labels, relationship types and node properties. Servers
// without property introspection get a schema of labels and types only.
func (s *Neo4jStore) Schema(ctx context.Context) (string, error) {
	labelRows, err := s.Run(ctx, cypher.SchemaLabels())
	if err != nil {
		return "", fmt.Errorf("read labels: %w", err)
	}
	typeRows, err := s.Run(ctx, cypher.SchemaRelationshipTypes())
	if err != nil {
		return "", fmt.Errorf("read relationship types: %w", err)
	}
	propRows, err := s.Run(ctx, cypher.SchemaNodeProperties())
	if err != nil {
		if errors.Is(err, models.ErrGraphUnavailable) || ctx.Err() != nil {
			return "", fmt.Errorf("read node properties: %w", err)
		}
		s.logger.Warn("node property introspection unsupported, using labels and types", zap.Error(err))
		propRows = nil
	}

	var labels, types []string
	if len(labelRows) > 0 {
		labels = stringList(labelRows[0]["labels"])
	}
	if len(typeRows) > 0 {
		types = stringList(typeRows[0]["types"])
	}
	props := make(map[string][]string)
	for _, row := range propRows {
		key := strings.Join(stringList(row["nodeLabels"]), ":")
		props[key] = append(props[key], stringList(row["properties"])...)
	}
	return FormatSchema(labels, types, props), nil
}

// Close releases the driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// FormatSchema renders a schema description for query generation.
func FormatSchema(labels, relTypes []string, props map[string][]string) string {
	var b strings.Builder
	b.WriteString("Node labels: ")
	b.WriteString(strings.Join(sortedCopy(labels), ", "))
	b.WriteString("\nRelationship types: ")
	b.WriteString(strings.Join(sortedCopy(relTypes), ", "))
	b.WriteString("\nNode properties:")
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  (:%s) {%s}", k, strings.Join(dedupe(props[k]), ", "))
	}
	return b.String()
}

// plainValue converts driver values into maps, slices and scalars.
func plainValue(v interface{}) interface{} {
	switch val := v.(type) {
	case neo4j.Node:
		out := make(map[string]interface{}, len(val.Props)+1)
		for k, p := range val.Props {
			out[k] = plainValue(p)
		}
		out[LabelsKey] = val.Labels
		return out
	case neo4j.Relationship:
		out := make(map[string]interface{}, len(val.Props)+1)
		for k, p := range val.Props {
			out[k] = plainValue(p)
		}
		out["_type"] = val.Type
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, p := range val {
			out[k] = plainValue(p)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, p := range val {
			out[i] = plainValue(p)
		}
		return out
	case fmt.Stringer:
		return val.String()
	}
	return v
}

func stringList(v interface{}) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, strings.TrimPrefix(s, ":"))
			}
		}
		return out
	case string:
		return []string{strings.TrimPrefix(val, ":")}
	}
	return nil
}

func sortedCopy(in []string) []string {
	out := dedupe(in)
	sort.Strings(out)
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
