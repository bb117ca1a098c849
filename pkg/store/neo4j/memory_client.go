package neo4j

import (
	"context"
	"sync"
)

// MemoryClient is a scripted Client for unit tests. Results are returned in
// the order they were pushed and every executed query is captured.
type MemoryClient struct {
	mu           sync.Mutex
	writeCalls   []ExecutedQuery
	readCalls    []ExecutedQuery
	readResults  []Result
	writeResults []Result
	err          error
	connectivity error
}

// ExecutedQuery captures a cypher statement and its parameters.
type ExecutedQuery struct {
	Query  string
	Params map[string]any
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError makes every subsequent call return err.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError forces VerifyConnectivity to return err.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

func (m *MemoryClient) PushReadResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readResults = append(m.readResults, res)
}

func (m *MemoryClient) PushWriteResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeResults = append(m.writeResults, res)
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next(&m.writeCalls, &m.writeResults, cypher, params)
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next(&m.readCalls, &m.readResults, cypher, params)
}

func (m *MemoryClient) next(calls *[]ExecutedQuery, queue *[]Result, cypher string, params map[string]any) (Result, error) {
	if m.err != nil {
		return Result{}, m.err
	}
	*calls = append(*calls, ExecutedQuery{Query: cypher, Params: cloneMap(params)})
	if len(*queue) == 0 {
		return Result{}, nil
	}
	res := (*queue)[0]
	*queue = (*queue)[1:]
	return res, nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

func (m *MemoryClient) WriteCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.writeCalls...)
}

func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.readCalls...)
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
