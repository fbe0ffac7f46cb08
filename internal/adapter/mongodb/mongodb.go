package mongodb

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/sadopc/datagate/internal/adapter"
	"github.com/sadopc/datagate/internal/table"
)

const (
	defaultHost     = "localhost"
	defaultPort     = 27017
	defaultDatabase = "test"
	closeTimeout    = 10 * time.Second
)

// Adapter implements adapter.Adapter for MongoDB. Connections list and page
// through collections but do not run statement text.
type Adapter struct{}

// New returns the MongoDB adapter.
func New() *Adapter { return &Adapter{} }

func (a *Adapter) Engine() adapter.Engine { return adapter.MongoDB }
func (a *Adapter) DefaultPort() int       { return defaultPort }

func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) (adapter.Connection, error) {
	uri := buildURI(cfg)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	dbName := databaseFromURI(uri)
	if dbName == "" {
		dbName = cfg.Database
	}
	if dbName == "" {
		dbName = defaultDatabase
	}

	return &Conn{client: client, db: client.Database(dbName), dbName: dbName}, nil
}

// buildURI returns cfg.URI when set, otherwise mongodb://host:port/database
// with localhost and 27017 as defaults.
func buildURI(cfg adapter.Config) string {
	if cfg.URI != "" {
		return cfg.URI
	}
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	u := url.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return u.String()
}

// databaseFromURI returns the default database named in a connection string
// path, or "".
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// Conn is an open MongoDB client bound to its default database.
type Conn struct {
	client *mongo.Client
	db     *mongo.Database
	dbName string
}

func (c *Conn) DatabaseName() string { return c.dbName }
func (c *Conn) AdapterName() string  { return string(adapter.MongoDB) }

func (c *Conn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *Conn) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// Tables lists the collections of the default database, sorted by name.
func (c *Conn) Tables(ctx context.Context) ([]string, error) {
	names, err := c.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongodb list collections: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	sort.Strings(names)
	return names, nil
}

// ReadTable returns one page of documents from a collection in natural
// order. Columns are the union of the page's field names in order of first
// appearance.
func (c *Conn) ReadTable(ctx context.Context, name string, limit, offset int) (*adapter.QueryResult, error) {
	start := time.Now()
	opts := options.Find().SetSkip(int64(offset)).SetLimit(int64(limit))

	cursor, err := c.db.Collection(name).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(ctx)

	records := []table.Record{}
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongodb decode: %w", err)
		}
		records = append(records, recordFromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongodb cursor: %w", err)
	}

	return adapter.RowsResult(columnUnion(records), records, start), nil
}

func columnUnion(records []table.Record) []string {
	seen := make(map[string]bool)
	cols := []string{}
	for _, rec := range records {
		for _, f := range rec {
			if !seen[f.Key] {
				seen[f.Key] = true
				cols = append(cols, f.Key)
			}
		}
	}
	return cols
}

// recordFromDocument converts a BSON document into an ordered record.
func recordFromDocument(doc bson.D) table.Record {
	rec := make(table.Record, len(doc))
	for i, e := range doc {
		rec[i] = table.Field{Key: e.Key, Value: convertValue(e.Value)}
	}
	return rec
}

// convertValue maps BSON types onto values with a natural JSON form.
func convertValue(v any) any {
	switch val := v.(type) {
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC()
	case bson.Decimal128:
		return val.String()
	case bson.Binary:
		return val.Data
	case bson.D:
		return recordFromDocument(val)
	case bson.A:
		arr := make([]any, len(val))
		for i, item := range val {
			arr[i] = convertValue(item)
		}
		return arr
	case bson.Null, bson.Undefined:
		return nil
	}
	return v
}
