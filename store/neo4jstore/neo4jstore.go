// Package neo4jstore provides a store.Backend on a Neo4j database.
//
// Types, members and substitutions are nodes labelled TGType, TGMember and
// TGSubstitution. Relations are kept both as id properties, which Load*
// reads back, and as edges for ad-hoc graph queries:
//
//	(:TGMember)-[:MEMBER_OF]->(:TGType)        member to its parent
//	(:TGMember)-[:HAS_TYPE]->(:TGType)         member to its base type
//	(:TGType)-[:POINTS_TO]->(:TGType)          pointer to its target
//	(:TGSubstitution)-[:HAS_TYPE]->(:TGType)   substitution to its base type
//
// Ids come from TGSequence counter nodes and are never reused.
package neo4jstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/wippyai/typegraph/store"
)

// Config holds connection settings.
type Config struct {
	// Logger overrides the package logger.
	Logger *zap.Logger

	URI      string
	Username string
	Password string

	// Database selects a database; empty uses the server default.
	Database string
}

// Backend is a store.Backend on Neo4j.
type Backend struct {
	driver neo4j.DriverWithContext
	log    *zap.Logger
	db     string
}

var _ store.Backend = (*Backend)(nil)

// Open connects to Neo4j, verifies connectivity and ensures the indexes
// used by id lookups exist.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach neo4j at %s: %w", cfg.URI, err)
	}
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}
	b := &Backend{driver: driver, log: log, db: cfg.Database}
	if err := b.createIndexes(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}
	log.Info("neo4j store opened", zap.String("uri", cfg.URI), zap.String("database", cfg.Database))
	return b, nil
}

func (b *Backend) createIndexes(ctx context.Context) error {
	indexes := []string{
		"CREATE CONSTRAINT tg_type_id IF NOT EXISTS FOR (n:TGType) REQUIRE n.id IS UNIQUE",
		"CREATE CONSTRAINT tg_member_id IF NOT EXISTS FOR (n:TGMember) REQUIRE n.id IS UNIQUE",
		"CREATE CONSTRAINT tg_subst_id IF NOT EXISTS FOR (n:TGSubstitution) REQUIRE n.id IS UNIQUE",
		"CREATE INDEX tg_type_name IF NOT EXISTS FOR (n:TGType) ON (n.name)",
	}
	for _, q := range indexes {
		if _, err := b.run(ctx, "CreateIndexes", q, nil); err != nil {
			return err
		}
	}
	return nil
}

// run executes one statement in its own transaction.
func (b *Backend) run(ctx context.Context, op, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if b.db != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(b.db))
	}
	res, err := neo4j.ExecuteQuery(ctx, b.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	b.log.Debug("neo4jstore", zap.String("op", op), zap.Int("records", len(res.Records)))
	return res.Records, nil
}

// mustMatch runs a statement that returns one record per matched node and
// maps zero records to store.ErrNotFound.
func (b *Backend) mustMatch(ctx context.Context, op, cypher string, params map[string]any) error {
	records, err := b.run(ctx, op, cypher, params)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (b *Backend) nextID(ctx context.Context, sequence string) (int, error) {
	records, err := b.run(ctx, "NextID",
		`MERGE (s:TGSequence {name: $name})
		 ON CREATE SET s.value = 0
		 SET s.value = s.value + 1
		 RETURN s.value AS id`,
		map[string]any{"name": sequence})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("sequence %s returned no value", sequence)
	}
	return recordInt(records[0], "id"), nil
}

// CreateType stores a type and returns its id.
func (b *Backend) CreateType(ctx context.Context, t store.RawType) (int, error) {
	id, err := b.nextID(ctx, "type")
	if err != nil {
		return 0, err
	}
	t.ID = id
	_, err = b.run(ctx, "CreateType",
		`CREATE (t:TGType {id: $id})
		 SET t += $props
		 WITH t
		 OPTIONAL MATCH (v:TGType {id: $points_to})
		 FOREACH (_ IN CASE WHEN v IS NULL THEN [] ELSE [1] END | MERGE (t)-[:POINTS_TO]->(v))`,
		typeParams(t))
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateType overwrites a stored type.
func (b *Backend) UpdateType(ctx context.Context, t store.RawType) error {
	return b.mustMatch(ctx, "UpdateType",
		`MATCH (t:TGType {id: $id})
		 SET t += $props
		 WITH t
		 OPTIONAL MATCH (t)-[r:POINTS_TO]->()
		 DELETE r
		 WITH DISTINCT t
		 OPTIONAL MATCH (v:TGType {id: $points_to})
		 FOREACH (_ IN CASE WHEN v IS NULL THEN [] ELSE [1] END | MERGE (t)-[:POINTS_TO]->(v))
		 RETURN t.id AS id`,
		typeParams(t))
}

// DeleteType removes a type and its members.
func (b *Backend) DeleteType(ctx context.Context, id int) error {
	return b.mustMatch(ctx, "DeleteType",
		`MATCH (t:TGType {id: $id})
		 OPTIONAL MATCH (m:TGMember)-[:MEMBER_OF]->(t)
		 WITH t, collect(m) AS members
		 FOREACH (m IN members | DETACH DELETE m)
		 DETACH DELETE t
		 RETURN $id AS id`,
		map[string]any{"id": id})
}

// CreateMember stores a member and returns its id.
func (b *Backend) CreateMember(ctx context.Context, m store.RawMember) (int, error) {
	id, err := b.nextID(ctx, "member")
	if err != nil {
		return 0, err
	}
	m.ID = id
	err = b.mustMatch(ctx, "CreateMember",
		`MATCH (p:TGType {id: $parent_id}), (base:TGType {id: $base_type_id})
		 CREATE (m:TGMember {id: $id})
		 SET m += $props
		 MERGE (m)-[:MEMBER_OF]->(p)
		 MERGE (m)-[:HAS_TYPE]->(base)
		 RETURN m.id AS id`,
		memberParams(m))
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateMember overwrites a stored member.
func (b *Backend) UpdateMember(ctx context.Context, m store.RawMember) error {
	return b.mustMatch(ctx, "UpdateMember",
		`MATCH (m:TGMember {id: $id}), (base:TGType {id: $base_type_id})
		 SET m.offset = null, m.count = null, m.argument_index = null
		 SET m += $props
		 WITH m, base
		 OPTIONAL MATCH (m)-[r:HAS_TYPE]->()
		 DELETE r
		 WITH DISTINCT m, base
		 MERGE (m)-[:HAS_TYPE]->(base)
		 RETURN m.id AS id`,
		memberParams(m))
}

// DeleteMember removes a member.
func (b *Backend) DeleteMember(ctx context.Context, id int) error {
	return b.mustMatch(ctx, "DeleteMember",
		`MATCH (m:TGMember {id: $id})
		 DETACH DELETE m
		 RETURN $id AS id`,
		map[string]any{"id": id})
}

// UpdateMemberOffsets shifts both groups in a single transaction.
func (b *Backend) UpdateMemberOffsets(ctx context.Context, ids []int, delta int, implicitIDs []int, implicitDelta int) error {
	rows := make([]map[string]any, 0, len(ids)+len(implicitIDs))
	for _, id := range ids {
		rows = append(rows, map[string]any{"id": id, "delta": delta})
	}
	for _, id := range implicitIDs {
		rows = append(rows, map[string]any{"id": id, "delta": implicitDelta})
	}
	if len(rows) == 0 {
		return nil
	}
	records, err := b.run(ctx, "UpdateMemberOffsets",
		`UNWIND $batch AS row
		 MATCH (m:TGMember {id: row.id})
		 WHERE m.offset IS NOT NULL
		 SET m.offset = m.offset + row.delta
		 RETURN m.id AS id`,
		map[string]any{"batch": rows})
	if err != nil {
		return err
	}
	if len(records) != len(rows) {
		return store.ErrNotFound
	}
	return nil
}

// CreateSubstitution stores a substitution and returns its id.
func (b *Backend) CreateSubstitution(ctx context.Context, s store.RawSubstitution) (int, error) {
	id, err := b.nextID(ctx, "substitution")
	if err != nil {
		return 0, err
	}
	s.ID = id
	err = b.mustMatch(ctx, "CreateSubstitution",
		`MATCH (base:TGType {id: $base_type_id})
		 CREATE (s:TGSubstitution {id: $id})
		 SET s += $props
		 MERGE (s)-[:HAS_TYPE]->(base)
		 RETURN s.id AS id`,
		substitutionParams(s))
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateSubstitution overwrites a stored substitution.
func (b *Backend) UpdateSubstitution(ctx context.Context, s store.RawSubstitution) error {
	return b.mustMatch(ctx, "UpdateSubstitution",
		`MATCH (s:TGSubstitution {id: $id}), (base:TGType {id: $base_type_id})
		 SET s.offset = null
		 SET s += $props
		 WITH s, base
		 OPTIONAL MATCH (s)-[r:HAS_TYPE]->()
		 DELETE r
		 WITH DISTINCT s, base
		 MERGE (s)-[:HAS_TYPE]->(base)
		 RETURN s.id AS id`,
		substitutionParams(s))
}

// DeleteSubstitution removes a substitution.
func (b *Backend) DeleteSubstitution(ctx context.Context, id int) error {
	return b.mustMatch(ctx, "DeleteSubstitution",
		`MATCH (s:TGSubstitution {id: $id})
		 DETACH DELETE s
		 RETURN $id AS id`,
		map[string]any{"id": id})
}

// LoadTypes returns all types ordered by id.
func (b *Backend) LoadTypes(ctx context.Context) ([]store.RawType, error) {
	records, err := b.run(ctx, "LoadTypes",
		`MATCH (t:TGType)
		 RETURN t.id AS id, t.name AS name, t.category AS category, t.bit_size AS bit_size,
		        t.signed AS signed, t.stack_frame AS stack_frame, t.points_to AS points_to
		 ORDER BY id`, nil)
	if err != nil {
		return nil, err
	}
	out := make([]store.RawType, 0, len(records))
	for _, rec := range records {
		out = append(out, rawTypeFromRecord(rec))
	}
	return out, nil
}

// LoadMembers returns all members ordered by id.
func (b *Backend) LoadMembers(ctx context.Context) ([]store.RawMember, error) {
	records, err := b.run(ctx, "LoadMembers",
		`MATCH (m:TGMember)
		 RETURN m.id AS id, m.name AS name, m.parent_id AS parent_id, m.base_type_id AS base_type_id,
		        m.offset AS offset, m.count AS count, m.argument_index AS argument_index
		 ORDER BY id`, nil)
	if err != nil {
		return nil, err
	}
	out := make([]store.RawMember, 0, len(records))
	for _, rec := range records {
		out = append(out, rawMemberFromRecord(rec))
	}
	return out, nil
}

// LoadSubstitutions returns all substitutions ordered by id.
func (b *Backend) LoadSubstitutions(ctx context.Context) ([]store.RawSubstitution, error) {
	records, err := b.run(ctx, "LoadSubstitutions",
		`MATCH (s:TGSubstitution)
		 RETURN s.id AS id, s.base_type_id AS base_type_id, s.address AS address,
		        s.operand_position AS operand_position, s.expression_id AS expression_id,
		        s.offset AS offset, s.path AS path
		 ORDER BY id`, nil)
	if err != nil {
		return nil, err
	}
	out := make([]store.RawSubstitution, 0, len(records))
	for _, rec := range records {
		out = append(out, rawSubstitutionFromRecord(rec))
	}
	return out, nil
}

// Reset removes every node this package created, sequences included.
func (b *Backend) Reset(ctx context.Context) error {
	queries := []string{
		"MATCH (n:TGSubstitution) DETACH DELETE n",
		"MATCH (n:TGMember) DETACH DELETE n",
		"MATCH (n:TGType) DETACH DELETE n",
		"MATCH (n:TGSequence) DELETE n",
	}
	for _, q := range queries {
		if _, err := b.run(ctx, "Reset", q, nil); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the driver.
func (b *Backend) Close() error {
	return b.driver.Close(context.Background())
}
