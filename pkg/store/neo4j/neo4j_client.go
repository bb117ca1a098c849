package neo4j

import (
	"context"
	"fmt"

	driver "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NewClient establishes a Bolt connection using the official driver.
func NewClient(ctx context.Context, opts Options) (Client, error) {
	if opts.URI == "" {
		return nil, ErrMissingURI
	}

	auth := driver.NoAuth()
	if opts.Username != "" {
		auth = driver.BasicAuth(opts.Username, opts.Password, "")
	}

	d, err := driver.NewDriverWithContext(opts.URI, auth, func(c *driver.Config) {
		if opts.MaxConnections > 0 {
			c.MaxConnectionPoolSize = opts.MaxConnections
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := d.VerifyConnectivity(ctx); err != nil {
		_ = d.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	return &boltClient{driver: d, database: opts.Database}, nil
}

type boltClient struct {
	driver   driver.DriverWithContext
	database string
}

func (c *boltClient) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return c.run(ctx, driver.AccessModeWrite, cypher, params)
}

func (c *boltClient) ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return c.run(ctx, driver.AccessModeRead, cypher, params)
}

func (c *boltClient) run(ctx context.Context, mode driver.AccessMode, cypher string, params map[string]any) (Result, error) {
	session := c.driver.NewSession(ctx, driver.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   mode,
	})
	defer session.Close(ctx)

	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return Result{}, err
	}
	return consumeResult(ctx, res)
}

func (c *boltClient) VerifyConnectivity(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *boltClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func consumeResult(ctx context.Context, res driver.ResultWithContext) (Result, error) {
	var records []Record
	for res.Next(ctx) {
		rec := res.Record()
		record := make(Record, len(rec.Keys))
		for _, key := range rec.Keys {
			value, _ := rec.Get(key)
			record[key] = value
		}
		records = append(records, record)
	}
	if err := res.Err(); err != nil {
		return Result{}, err
	}
	return Result{Records: records}, nil
}
