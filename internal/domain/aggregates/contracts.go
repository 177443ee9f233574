package aggregates

// WriteTxOwnership says who opens the transaction around an aggregate write.
type WriteTxOwnership string

const (
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
	WriteTxOwnedByCaller    WriteTxOwnership = "caller_owned"
)

// ReadPolicy says which reads an aggregate performs itself.
type ReadPolicy string

const (
	// ReadPolicyInvariantScoped: only the rows a write decision depends on.
	ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"
	// ReadPolicyTableRepoQueries: listings and dashboards go through table repos.
	ReadPolicyTableRepoQueries ReadPolicy = "table_repo_queries"
)

// Contract documents the write boundary of an aggregate. It is descriptive;
// the write path does not branch on it.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	// Tables lists every table the aggregate may write inside one transaction.
	Tables []string
	// ReplaysStaleScore is set when a lost score compare-and-set is replayed
	// in a fresh transaction instead of surfacing as a conflict.
	ReplaysStaleScore bool
	Notes             string
}

type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

// Writes reports whether table is inside the aggregate's write set.
func (c Contract) Writes(table string) bool {
	for _, t := range c.Tables {
		if t == table {
			return true
		}
	}
	return false
}
